package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudwego/buddyalloc/pkg/buddy/replay"
)

func newRunCmd() *cobra.Command {
	var scriptPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a script and print counters after every line",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openScript(scriptPath)
			if err != nil {
				return err
			}
			if f != os.Stdin {
				defer f.Close()
			}

			ops, err := parseScript(f)
			if err != nil {
				return err
			}

			d := newDriver()
			for _, o := range ops {
				result, err := d.exec(o)
				if err != nil {
					log.Error().Err(err).Msg("op failed")
					continue
				}
				log.Info().Str("result", result).Str("counters", d.summary()).Msg("op ok")
			}
			log.Info().Str("final", d.summary()).Msg("run complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "-", "script file path, or - for stdin")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var scriptPath string
	var maxRecord, arenaSize int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Replay a script, buffering results in a record pool, then dump them",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openScript(scriptPath)
			if err != nil {
				return err
			}
			if f != os.Stdin {
				defer f.Close()
			}

			ops, err := parseScript(f)
			if err != nil {
				return err
			}

			pool, err := replay.NewPool(make([]byte, arenaSize), maxRecord)
			if err != nil {
				return err
			}

			d := newDriver()
			var records [][]byte
			for _, o := range ops {
				result, err := d.exec(o)
				if err != nil {
					result = "error: " + err.Error()
				}
				rec := pool.Reserve(len(result))
				if rec == nil {
					log.Warn().Msg("record pool exhausted, dropping oldest entry")
					if len(records) > 0 {
						pool.Release(records[0])
						records = records[1:]
						rec = pool.Reserve(len(result))
					}
				}
				if rec != nil {
					copy(rec, result)
					records = append(records, rec)
				}
			}

			for i, rec := range records {
				log.Info().Int("seq", i).Str("entry", string(rec)).Msg("history")
			}
			log.Info().Str("final", d.summary()).Msg("run complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "-", "script file path, or - for stdin")
	cmd.Flags().IntVar(&maxRecord, "max-record", replay.DefaultMaxRecordSize, "largest single record in bytes, including its header")
	cmd.Flags().IntVar(&arenaSize, "pool-arena", 1<<20, "record pool arena size in bytes")
	return cmd
}
