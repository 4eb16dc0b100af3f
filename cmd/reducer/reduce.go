package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sgostarter/i/l"
	"github.com/sgostarter/libreducer/reducer"
	"github.com/sgostarter/libreducer/sample"
	"github.com/sgostarter/libreducer/series"
	"github.com/sgostarter/libreducer/sink"
	"github.com/sgostarter/libreducer/sink/impls/sqlitestorage"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	inputFlag        = "input"
	configFlag       = "config"
	gpsFlag          = "gps"
	bufferSizeFlag   = "buffer-size"
	allowedErrorFlag = "allowed-error"
	sqliteFlag       = "sqlite"
	keyFlag          = "key"
	verboseFlag      = "verbose"
)

type reduceOptions struct {
	input        string
	config       string
	gps          bool
	bufferSize   int
	allowedError float64
	sqlite       string
	key          string
	verbose      bool
}

func addReduceFlags(fs *pflag.FlagSet, opts *reduceOptions) {
	fs.StringVarP(&opts.input, inputFlag, "i", "", "csv file with a header line; value,timestamp or time,lat,long with --gps")
	fs.StringVarP(&opts.config, configFlag, "c", "", "yaml config file, REDUCER_* environment variables override it")
	fs.BoolVar(&opts.gps, gpsFlag, false, "input is a gps track")
	fs.IntVar(&opts.bufferSize, bufferSizeFlag, reducer.DefaultBufferSize, "reduction window size")
	fs.Float64Var(&opts.allowedError, allowedErrorFlag, reducer.DefaultAllowedError, "allowed deviation of dropped points")
	fs.StringVar(&opts.sqlite, sqliteFlag, "", "also keep the retained points in this sqlite database")
	fs.StringVar(&opts.key, keyFlag, "", "series key of the stored points, the input file name by default")
	fs.BoolVarP(&opts.verbose, verboseFlag, "v", false, "log to the console")
}

func newReduceCmd() *cobra.Command {
	opts := &reduceOptions{}

	cmd := &cobra.Command{
		Use:   "reduce",
		Short: "Reduce a csv series and print the retained points",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReduce(cmd.Context(), cmd.Flags(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	addReduceFlags(cmd.Flags(), opts)

	_ = cmd.MarkFlagRequired(inputFlag)

	return cmd
}

func buildConfig(fs *pflag.FlagSet, opts *reduceOptions) (cfg *reducer.Config, err error) {
	cfg, err = reducer.LoadConfig(opts.config)
	if err != nil {
		return
	}

	if fs.Changed(bufferSizeFlag) {
		cfg.BufferSize = opts.bufferSize
	}

	if fs.Changed(allowedErrorFlag) {
		cfg.AllowedError = opts.allowedError
	}

	if opts.gps {
		cfg.DataType = reducer.DataTypeGPS
	}

	return
}

func runReduce(ctx context.Context, fs *pflag.FlagSet, opts *reduceOptions, stdout, stderr io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var logger l.Wrapper = l.NewNopLoggerWrapper()
	if opts.verbose {
		logger = l.NewConsoleLoggerWrapper()
	}

	cfg, err := buildConfig(fs, opts)
	if err != nil {
		return
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return
	}

	defer f.Close()

	var ps []reducer.Point

	if cfg.DataType == reducer.DataTypeGPS {
		ps, err = sample.ReadLocationPoints(f, logger)
	} else {
		ps, err = sample.ReadPoints(f, logger)
	}

	if err != nil {
		return
	}

	key := opts.key
	if key == "" {
		key = strings.TrimSuffix(filepath.Base(opts.input), filepath.Ext(opts.input))
	}

	var storage sink.Storage = sink.NewMemoryStorage()

	if opts.sqlite != "" {
		sqliteStorage, errS := sqlitestorage.NewSQLiteStorage(opts.sqlite, logger)
		if errS != nil {
			return errS
		}

		defer sqliteStorage.Close()

		storage = sqliteStorage
	}

	m := series.NewManager(ctx, series.WithLogger(logger), series.WithStorage(storage),
		series.WithReducerOptions(cfg.Options()...))

	var sessionID uint64

	for _, p := range ps {
		if err = m.AddPoint(ctx, key, p); err != nil {
			_ = m.Close()

			return
		}

		if sessionID == 0 {
			sessionID, _ = m.SessionID(key)
		}
	}

	if err = m.Close(); err != nil {
		return
	}

	records, err := storage.Load(ctx, key)
	if err != nil {
		return
	}

	header := "value,timestamp"
	if cfg.DataType == reducer.DataTypeGPS {
		header = "time,lat,long"
	}

	if _, err = fmt.Fprintln(stdout, header); err != nil {
		return
	}

	var retained int

	for _, record := range records {
		// the database may hold earlier runs
		if record.SessionID != sessionID {
			continue
		}

		retained++

		if cfg.DataType == reducer.DataTypeGPS {
			_, err = fmt.Fprintf(stdout, "%s,%s,%s\n", record.At.Format(sample.TimeLayout),
				formatFloat(record.Value), formatFloat(record.Timestamp))
		} else {
			_, err = fmt.Fprintf(stdout, "%s,%s\n", formatFloat(record.Value), formatFloat(record.Timestamp))
		}

		if err != nil {
			return
		}
	}

	_, _ = fmt.Fprintf(stderr, "%s: %d points, %d retained\n", key, len(ps), retained)

	return
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
