package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/arborsat/dpll/internal/sat"
	"github.com/arborsat/dpll/parsers"
)

var (
	flagGzip       = flag.Bool("gz", false, "the instance file is gzip-compressed")
	flagSimple     = flag.Bool("simple", false, "use the literal DPLL baseline instead of the CDCL learning driver")
	flagTimeout    = flag.Duration("timeout", 0, "wall-clock solve budget (0 disables the timeout)")
	flagCPUProfile = flag.Bool("cpuprof", false, "save pprof CPU profile in cpuprof")
	flagMemProfile = flag.Bool("memprof", false, "save pprof memory profile in memprof")
)

type config struct {
	instanceFile string
	gzipped      bool
	simple       bool
	timeout      time.Duration
	cpuProfile   bool
	memProfile   bool
}

func parseConfig() (*config, error) {
	flag.Parse()
	if flag.NArg() == 0 || flag.Arg(0) == "" {
		return nil, fmt.Errorf("missing instance file")
	}
	return &config{
		instanceFile: flag.Arg(0),
		gzipped:      *flagGzip,
		simple:       *flagSimple,
		timeout:      *flagTimeout,
		cpuProfile:   *flagCPUProfile,
		memProfile:   *flagMemProfile,
	}, nil
}

func run(cfg *config) error {
	numVars, clauses, err := parsers.LoadDIMACS(cfg.instanceFile, cfg.gzipped)
	if err != nil {
		return fmt.Errorf("could not parse instance: %s", err)
	}
	fmt.Printf("c variables:  %d\n", numVars)
	fmt.Printf("c clauses:    %d\n", len(clauses))

	opts := []sat.Option{sat.WithLearning(!cfg.simple)}
	if cfg.timeout > 0 {
		opts = append(opts, sat.WithTimeout(cfg.timeout))
	}
	s, err := sat.NewSolver(numVars, clauses, opts...)
	if err != nil {
		return fmt.Errorf("could not build solver: %s", err)
	}

	t := time.Now()
	satisfiable, err := s.Solve()
	elapsed := time.Since(t)
	fmt.Printf("c time (sec): %f\n", elapsed.Seconds())

	if err != nil {
		fmt.Println("TIMEOUT")
		return err
	}
	if !satisfiable {
		fmt.Println("UNSAT")
		return nil
	}

	fmt.Println("SAT")
	model := s.Model()
	for v := 1; v <= numVars; v++ {
		if v > 1 {
			fmt.Print(" ")
		}
		if model[v] {
			fmt.Print(v)
		} else {
			fmt.Print(-v)
		}
	}
	fmt.Println()
	return nil
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.cpuProfile {
		f, err := os.Create("cpuprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile {
		f, err := os.Create("memprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
