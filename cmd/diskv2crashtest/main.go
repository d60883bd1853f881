// Crash test orchestrator for the DiskV2 buffer (spec.md §8's S1 testable
// property: "kill -9 during active write; restart recovers the most recent
// consistent prefix").
//
// This tool forks itself as a writer subprocess that appends
// monotonically-numbered records to a Buffer, kills that subprocess with
// SIGKILL at a random point to simulate an actual crash (not a graceful
// shutdown), then reopens the same directory and verifies every record
// recovered is both contiguous from zero and checksum-valid — i.e. the
// buffer loses at most an unsynced tail, never corrupts or reorders what it
// does keep.
//
// Usage: go run ./cmd/diskv2crashtest [flags]
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/routeryard/core/buffer"
	"github.com/routeryard/core/internal/logging"
)

var (
	cycles       = flag.Int("cycles", 20, "Number of crash cycles to run")
	dbDir        = flag.String("db", "", "Buffer directory (default: temp directory)")
	keep         = flag.Bool("keep", false, "Keep the buffer directory after the test")
	minRunTime   = flag.Duration("min-run", 20*time.Millisecond, "Minimum writer run time before killing it")
	maxRunTime   = flag.Duration("max-run", 300*time.Millisecond, "Maximum writer run time before killing it")
	recordSize   = flag.Int("record-size", 256, "Payload size per record, in bytes")
	seed         = flag.Int64("seed", 0, "Random seed (0 for time-based)")
	writerModeOn = flag.Bool("writer", false, "Internal: run as the writer subprocess")
)

func main() {
	flag.Parse()
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	if *writerModeOn {
		runWriter()
		return
	}

	dir := *dbDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "diskv2crashtest-*")
		if err != nil {
			fatal("MkdirTemp: %v", err)
		}
	}
	if !*keep {
		defer os.RemoveAll(dir)
	}

	fmt.Printf("diskv2crashtest: dir=%s seed=%d cycles=%d\n", dir, *seed, *cycles)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	lastVerified := uint64(0)
	for cycle := 0; cycle < *cycles; cycle++ {
		select {
		case <-ctx.Done():
			fmt.Println("interrupted")
			return
		default:
		}

		runTime := *minRunTime + time.Duration(rng.Int63n(int64(*maxRunTime-*minRunTime+1)))
		if err := runAndKillOnce(ctx, dir, runTime); err != nil {
			fatal("cycle %d: %v", cycle, err)
		}

		recovered, err := verifyRecovery(dir)
		if err != nil {
			fatal("cycle %d: recovery verification failed: %v", cycle, err)
		}
		if recovered < lastVerified {
			fatal("cycle %d: recovered count %d is lower than previously verified %d — records were lost after being acknowledged", cycle, recovered, lastVerified)
		}
		lastVerified = recovered
		fmt.Printf("cycle %d: ok, %d records recovered and contiguous\n", cycle, recovered)
	}

	fmt.Println("diskv2crashtest: all cycles passed")
}

// runAndKillOnce spawns the writer subprocess, lets it run for runTime, then
// SIGKILLs it — an ungraceful termination, unlike the topology scheduler's
// own cooperative shutdown (spec.md §4.2.4), to exercise recovery from a
// genuine crash mid-write.
func runAndKillOnce(ctx context.Context, dir string, runTime time.Duration) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, exe, "-writer", "-db", dir, "-record-size", fmt.Sprint(*recordSize))
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start writer: %w", err)
	}

	timer := time.NewTimer(runTime)
	defer timer.Stop()
	<-timer.C

	if cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGKILL)
	}
	_ = cmd.Wait() // expected to report a signal-killed exit; errors are not fatal here
	return nil
}

// runWriter is the subprocess entry point: it opens the buffer and writes
// monotonically-numbered records until killed.
func runWriter() {
	opts := buffer.Options{Dir: *dbDir, MaxDataFileSize: 4 << 20, MaxBufferSize: 256 << 20}
	buf, err := buffer.Open(opts)
	if err != nil {
		fatal("writer: Open: %v", err)
	}
	defer buf.Close()

	payload := make([]byte, 8+*recordSize)
	var seq uint64
	for {
		binary.BigEndian.PutUint64(payload[:8], seq)
		if _, err := buf.Write(payload); err != nil {
			fatal("writer: Write: %v", err)
		}
		seq++
	}
}

// verifyRecovery reopens dir, drains and acknowledges every recoverable
// record, and asserts the recovered sequence is contiguous from zero with no
// corrupted payloads — the crash may truncate the tail, but must never
// reorder or corrupt what survives.
func verifyRecovery(dir string) (uint64, error) {
	buf, err := buffer.Open(buffer.Options{Dir: dir})
	if err != nil {
		return 0, fmt.Errorf("reopen: %w", err)
	}
	defer buf.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var want uint64
	for {
		payload, rcpt, err := buf.Next(ctx)
		if err != nil {
			break // no more records ready within the timeout: end of recovered prefix
		}
		if len(payload) < 8 {
			return want, fmt.Errorf("record %d: payload too short (%d bytes)", want, len(payload))
		}
		got := binary.BigEndian.Uint64(payload[:8])
		if got != want {
			return want, fmt.Errorf("record out of order: want seq %d, got %d", want, got)
		}
		if err := buf.Ack(rcpt.ID); err != nil {
			return want, fmt.Errorf("ack record %d: %w", want, err)
		}
		want++
	}
	return want, nil
}

func fatal(format string, args ...any) {
	logging.OrDefault(nil).Errorf(format, args...)
	os.Exit(1)
}
