package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"road-weather-platform/internal/feed"
	"road-weather-platform/internal/models"
)

func newInspectCmd() *cobra.Command {
	var (
		file   string
		format string
	)

	cmd := &cobra.Command{
		Use:       "inspect <stations|readings>",
		Short:     "Extract a feed and print its records without touching the database",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(feed.KindStations), string(feed.KindReadings)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := feed.ParseKind(args[0])
			if err != nil {
				return err
			}
			return inspect(cmd.OutOrStdout(), kind, file, format)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "feed file to read (.xml or .xml.gz)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")
	cmd.MarkFlagRequired("file")

	return cmd
}

func inspect(out io.Writer, kind feed.Kind, path, format string) error {
	if format != "table" && format != "json" {
		return fmt.Errorf("invalid format %q (allowed: table, json)", format)
	}

	switch kind {
	case feed.KindStations:
		stations, err := feed.ExtractStationsFile(path)
		if err != nil {
			return err
		}
		if format == "json" {
			return writeJSON(out, stations)
		}
		return writeStations(out, stations)
	default:
		readings, err := feed.ExtractReadingsFile(path)
		if err != nil {
			return err
		}
		if format == "json" {
			return writeJSON(out, readings)
		}
		return writeReadings(out, readings)
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeStations(out io.Writer, stations []models.Station) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROAD\tCOUNTY\tLAT\tLON")
	for _, s := range stations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Name, s.RoadNumber, s.CountyNumber, s.Latitude, s.Longitude)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d stations\n", len(stations))
	return err
}

func writeReadings(out io.Writer, readings []models.Reading) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATION\tTIMESTAMP\tROAD_TEMP\tAIR_TEMP\tHUMIDITY\tWIND_SPEED\tWIND_DIR")
	for _, r := range readings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StationID, r.Timestamp, r.RoadTemperature, r.AirTemperature,
			r.AirHumidity, r.WindSpeed, r.WindDirection)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d readings\n", len(readings))
	return err
}
