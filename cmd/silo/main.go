// Command silo is a line-oriented interactive shell over a silo store. It
// reads commands from standard input and dispatches on the first
// whitespace-separated token, per the external interface this binary
// implements: it is a thin collaborator around the library, holding no
// storage logic of its own.
package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/iamNilotpal/silo"
	"github.com/iamNilotpal/silo/internal/store"
	"github.com/iamNilotpal/silo/pkg/errors"
	"github.com/iamNilotpal/silo/pkg/options"
)

func main() {
	var (
		dir                string
		segmentSize        uint64
		compactionInterval time.Duration
		maxFieldBytes      uint64
	)

	flag.StringVar(&dir, "dir", options.DefaultDataDir, "data directory")
	flag.Uint64Var(&segmentSize, "segment-size", options.DefaultSegmentBytes, "segment rollover threshold in bytes")
	flag.DurationVar(&compactionInterval, "compaction-interval", options.DefaultCompactionInterval, "interval between compaction cycles")
	flag.Uint64Var(&maxFieldBytes, "max-field-bytes", options.DefaultMaxFieldBytes, "safety cap on decoded key/value length in bytes")
	flag.Parse()

	db, err := silo.Open(
		context.Background(),
		"silo-shell",
		options.WithDataDir(dir),
		options.WithSegmentSize(segmentSize),
		options.WithCompactionInterval(compactionInterval),
		options.WithMaxFieldBytes(maxFieldBytes),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}

	code := run(db, os.Stdin, os.Stdout)

	if err := db.Close(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		if code == 0 {
			code = 1
		}
	}

	os.Exit(code)
}

// run drives the command loop until "exit" is read or standard input is
// exhausted, writing every response to out. It returns the process exit
// code: 0 for a graceful "exit", nonzero if an unrecoverable error stopped
// the loop first.
func run(db *silo.DB, in *os.File, out *os.File) int {
	reader := bufio.NewReader(in)

	for {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return 0
		}

		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}

		var opErr error
		switch fields[0] {
		case "get":
			if len(fields) != 2 {
				fmt.Fprintln(out, "-> err: unsupported command")
				continue
			}
			opErr = handleGet(db, out, fields[1])

		case "set":
			if len(fields) < 3 {
				fmt.Fprintln(out, "-> err: unsupported command")
				continue
			}
			opErr = handleSet(db, out, fields[1], strings.Join(fields[2:], " "))

		case "del":
			if len(fields) != 2 {
				fmt.Fprintln(out, "-> err: unsupported command")
				continue
			}
			opErr = handleDelete(db, out, fields[1])

		case "exit":
			fmt.Fprintln(out, "-> exiting")
			return 0

		default:
			fmt.Fprintln(out, "-> err: unsupported command")
		}

		// Index inconsistency is a bug-class condition the store itself now
		// refuses to operate through; the shell mirrors that by refusing to
		// keep accepting commands rather than printing the same error forever.
		if stderrors.Is(opErr, store.ErrIndexInconsistent) {
			fmt.Fprintln(out, "-> halted: index is inconsistent, restart required")
			return 1
		}
	}
}

func handleGet(db *silo.DB, out *os.File, key string) error {
	value, ok, err := db.Get(key)
	if err != nil {
		fmt.Fprintln(out, describeError(err))
		return err
	}
	if !ok {
		fmt.Fprintln(out, "-> null")
		return nil
	}
	fmt.Fprintln(out, "->", value)
	return nil
}

func handleSet(db *silo.DB, out *os.File, key, value string) error {
	if err := db.Set(key, value); err != nil {
		fmt.Fprintln(out, describeError(err))
		return err
	}
	fmt.Fprintln(out, "-> set", key)
	return nil
}

func handleDelete(db *silo.DB, out *os.File, key string) error {
	if err := db.Delete(key); err != nil {
		fmt.Fprintln(out, describeError(err))
		return err
	}
	fmt.Fprintln(out, "-> deleted", key)
	return nil
}

// describeError renders an error using the richest context the errors
// package can extract from it: the classified error code, any structured
// details captured at the point of failure, and type-specific fields for
// validation, storage, and index errors.
func describeError(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-> err: %s [%s]", err, errors.GetErrorCode(err))

	switch {
	case errors.IsValidationError(err):
		if ve, ok := errors.AsValidationError(err); ok {
			fmt.Fprintf(&b, " field=%q rule=%q", ve.Field(), ve.Rule())
		}
	case errors.IsStorageError(err):
		if se, ok := errors.AsStorageError(err); ok {
			fmt.Fprintf(&b, " path=%q file=%q", se.Path(), se.FileName())
		}
	case errors.IsIndexError(err):
		if ie, ok := errors.AsIndexError(err); ok {
			fmt.Fprintf(&b, " key=%q operation=%q segmentID=%d", ie.Key(), ie.Operation(), ie.SegmentID())
		}
	}

	if details := errors.GetErrorDetails(err); len(details) > 0 {
		fmt.Fprintf(&b, " details=%v", details)
	}

	return b.String()
}
