// Command profiler generates a synthetic zip archive and repeatedly packs
// or unpacks it while collecting runtime profiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/meigma/lica"
)

type config struct {
	mode       string
	files      int
	fileSize   int
	dirCount   int
	pattern    string
	duration   time.Duration
	iterations int
	pprofAddr  string
	cpuProfile string
	memProfile string
	traceFile  string
	tempDir    string
	keepTemp   bool
	randomSeed int64
}

type profileStats struct {
	ops       int
	bytes     int64
	elapsed   time.Duration
	peakAlloc uint64
}

//nolint:gocognit // main function complexity is acceptable for CLI tool
func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	dir, cleanup, err := setupTempDir(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
	}

	archivePath := filepath.Join(dir, "input.zip")
	if err := makeArchive(archivePath, cfg); err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
	}
	containerPath := filepath.Join(dir, "input.lica")
	if _, err := lica.Pack(context.Background(), archivePath, containerPath); err != nil {
		log.Fatal(err)
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, dir, archivePath, containerPath)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s ops=%d bytes=%d elapsed=%s throughput=%.2f MB/s peak-heap=%d\n",
		cfg.mode,
		stats.ops,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
		stats.peakAlloc,
	)
}

//nolint:gocritic // hugeParam acceptable for profiler config
func runProfile(cfg config, dir, archivePath, containerPath string) (profileStats, error) {
	ctx := context.Background()
	start := time.Now()
	var stats profileStats

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return stats.ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	var sampled runtime.MemStats
	sample := func() {
		runtime.ReadMemStats(&sampled)
		stats.peakAlloc = max(stats.peakAlloc, sampled.HeapAlloc)
	}
	progress := func(lica.ProgressEvent) { sample() }

	for shouldContinue() {
		out := filepath.Join(dir, fmt.Sprintf("iter-%d", stats.ops))
		switch cfg.mode {
		case "pack":
			res, err := lica.Pack(ctx, archivePath, out+".lica", lica.PackWithProgress(progress))
			if err != nil {
				return stats, err
			}
			stats.bytes += int64(res.Bytes) //nolint:gosec // container sizes fit int64
			if err := os.Remove(out + ".lica"); err != nil {
				return stats, err
			}
		case "unpack-bulk", "unpack-stream":
			unpack := lica.UnpackBulk
			if cfg.mode == "unpack-stream" {
				unpack = lica.UnpackStream
			}
			res, err := unpack(ctx, containerPath, out, lica.UnpackWithProgress(progress))
			if err != nil {
				return stats, err
			}
			if err := res.Err(); err != nil {
				return stats, err
			}
			stats.bytes += int64(res.Bytes) //nolint:gosec // output sizes fit int64
			if err := os.RemoveAll(out); err != nil {
				return stats, err
			}
		default:
			return stats, fmt.Errorf("unknown mode: %s", cfg.mode)
		}
		stats.ops++
	}

	stats.elapsed = time.Since(start)
	return stats, nil
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.mode, "mode", "unpack-stream", "mode: pack, unpack-bulk, unpack-stream")
	flag.IntVar(&cfg.files, "files", 512, "number of files")
	flag.IntVar(&cfg.fileSize, "file-size", 16<<10, "file size in bytes")
	flag.IntVar(&cfg.dirCount, "dir-count", 16, "number of directories")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.StringVar(&cfg.tempDir, "temp-dir", "", "directory to use for dataset")
	flag.BoolVar(&cfg.keepTemp, "keep-temp", false, "keep temp dir after run")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.Parse()
	return cfg
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func setupTempDir(cfg config) (string, func() error, error) {
	if cfg.tempDir != "" {
		return cfg.tempDir, nil, os.MkdirAll(cfg.tempDir, 0o755) //nolint:gosec // 0o755 is intentional for profiler temp dirs
	}
	dir, err := os.MkdirTemp("", "lica-profiler-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() error {
		if cfg.keepTemp {
			return nil
		}
		return os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func makeArchive(path string, cfg config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dirCount := max(cfg.dirCount, 1)
	rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional use for reproducible benchmarks
	zw := zip.NewWriter(f)
	content := make([]byte, cfg.fileSize)
	for i := range cfg.files {
		switch cfg.pattern {
		case "random":
			if _, err := rng.Read(content); err != nil {
				return err
			}
		default:
			fillByte := byte('a' + (i % 26))
			for j := range content {
				content[j] = fillByte
			}
			if len(content) > 0 {
				content[0] = byte(i)
			}
		}

		w, err := zw.Create(fmt.Sprintf("dir%02d/file%05d.dat", i%dirCount, i))
		if err != nil {
			return err
		}
		if _, err := w.Write(content); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return f.Close()
}
