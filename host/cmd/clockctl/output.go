package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"picoclock/clocks"
)

func newLogger(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

func writeSnapshot(w io.Writer, format string, status []clocks.Status) error {
	switch format {
	case "text":
		return writeTable(w, status)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(status); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}

func writeTable(w io.Writer, status []clocks.Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLOCK\tSTATE\tSOURCE\tDIV\tFREQUENCY")
	for _, st := range status {
		src, div := "-", "-"
		if st.State == clocks.StateConfigured {
			src = st.From
			div = strconv.FormatUint(uint64(st.Divider), 10)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", st.Name, st.StateName, src, div, st.Frequency)
	}
	return tw.Flush()
}
