package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/ancestry.report/api"
	"github.com/banshee-data/ancestry.report/internal/config"
	"github.com/banshee-data/ancestry.report/internal/db"
	"github.com/banshee-data/ancestry.report/internal/estimate"
	"github.com/banshee-data/ancestry.report/internal/segments"
)

// runCommand reads a matchfile, estimates every pair and writes results to
// the database or to JSON on stdout / a file.
func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)

	configPath := fs.String("config", "", "JSON model config file (flags override file values)")
	dbPath := fs.String("db", "", "write results to this SQLite database")
	outPath := fs.String("o", "", "write results to this JSON file (default: stdout)")

	minCM := fs.Float64("t", estimate.DefaultMinCM, "min segment length (cM) to include")
	theta := fs.Float64("theta", estimate.DefaultTheta, "mean shared segment length (cM) in the population")
	lambda := fs.Float64("l", estimate.DefaultLambda, "mean number of segments shared in the population")
	recomb := fs.Float64("r", estimate.DefaultRecombRate, "recombination events per haploid genome per generation")
	autosomes := fs.Int("c", estimate.DefaultAutosomes, "number of autosomes")
	maxD := fs.Int("dmax", estimate.DefaultMaxD, "max combined number of generations to test")
	alpha := fs.Float64("alpha", estimate.DefaultAlpha, "significance level for the likelihood-ratio test")
	firstDeg := fs.Bool("first-deg-adj", false, "apply the first-degree relationship adjustments")
	ci := fs.Bool("ci", false, "compute confidence intervals")

	user := fs.String("user", "", "only consider pairs involving this individual")
	dob := fs.String("dob", "", "birth years for orienting relationship labels, as id=year[,id=year...]")
	haploscores := fs.Bool("haploscores", false, "input has a trailing haploscore column (discarded)")
	nomask := fs.Bool("nomask", false, "disable genomic region masking")
	mergeGap := fs.Int64("merge-segs", -1, "merge segments on the same chromosome <= this many bp apart (-1: off)")
	workers := fs.Int("workers", 0, "estimation workers (0: GOMAXPROCS)")

	keepInsig := fs.Bool("keep-insignificant", false, "store insignificant results with a NULL d estimate")
	insigCM := fs.Float64("insig-threshold", 0, "store insignificant results with at least this total cM (0: off)")
	insigSegs := fs.Int("keep-insig-segs", 0, "store insignificant results with at least this many segments above -keep-insig-cm (0: off)")
	insigSegCM := fs.Float64("keep-insig-cm", 0, "segment length threshold for -keep-insig-segs")

	fs.Parse(args)
	if fs.NArg() != 1 {
		log.Fatal("run: exactly one matchfile argument is required")
	}
	matchfile := fs.Arg(0)

	params := estimate.DefaultParams()
	disableMask := false
	mergeBP := int64(-1)
	if *configPath != "" {
		cfg, err := config.LoadModelConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		params = cfg.Params()
		disableMask = cfg.GetDisableMasking()
		mergeBP = cfg.GetMergeGapBP()
	}
	// Explicit flags beat the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			params.MinCM = *minCM
		case "theta":
			params.Theta = *theta
		case "l":
			params.Lambda = *lambda
		case "r":
			params.RecombRate = *recomb
		case "c":
			params.Autosomes = *autosomes
		case "dmax":
			params.MaxD = *maxD
		case "alpha":
			params.Alpha = *alpha
		case "first-deg-adj":
			params.FirstDegreeAdjust = *firstDeg
		case "nomask":
			disableMask = *nomask
		case "merge-segs":
			mergeBP = *mergeGap
		}
	})

	model, err := estimate.NewModel(params)
	if err != nil {
		log.Fatalf("invalid model parameters: %v", err)
	}

	birthYears, err := parseBirthYears(*dob)
	if err != nil {
		log.Fatalf("invalid -dob value: %v", err)
	}

	start := time.Now()
	log.Printf("reading %s", matchfile)

	segs, rejected, err := segments.ReadMatchfilePath(matchfile, segments.ReadOptions{
		Haploscores: *haploscores,
		User:        *user,
	})
	if err != nil {
		log.Fatalf("failed to read matchfile: %v", err)
	}
	for _, rej := range rejected {
		log.Printf("rejected: %v", rej)
	}

	if mergeBP >= 0 {
		segs = segments.MergeNearby(segs, mergeBP)
	}
	if !disableMask {
		segs = segments.MaskSegments(segs, params.MinCM)
	}

	agg := segments.Aggregate(segs, params.MinCM)
	for _, rej := range agg.Rejected {
		log.Printf("rejected: %v", rej)
	}
	log.Printf("read %d segments across %d pairs in %s", len(segs), len(agg.Stats), time.Since(start).Round(time.Millisecond))

	batch := estimate.RunBatch(model, agg.Stats, estimate.BatchOptions{
		Options: estimate.Options{ConfidenceIntervals: *ci, BirthYears: birthYears},
		Workers: *workers,
	})
	for _, perr := range batch.Errors {
		log.Printf("estimation failed: %v", perr)
	}
	log.Printf("estimated %d pairs (%d failed) in %s [run %s]",
		len(batch.Results), len(batch.Errors), time.Since(start).Round(time.Millisecond), batch.RunID)

	if *dbPath != "" {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open results database: %v", err)
		}
		defer database.Close()

		policy := db.KeepPolicy{
			KeepInsignificant: *keepInsig,
			MinTotalCM:        *insigCM,
			MinSegments:       *insigSegs,
			MinSegmentCM:      *insigSegCM,
		}
		segLists := segments.GroupByPair(segs, params.MinCM)
		stored, err := database.InsertBatch(batch, segLists, policy)
		if err != nil {
			log.Fatalf("failed to store results: %v", err)
		}
		log.Printf("stored %d results in %s", stored, *dbPath)
		return
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("failed to create output file: %v", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "    ")
	if err := enc.Encode(batch.Results); err != nil {
		log.Fatalf("failed to write results: %v", err)
	}
}

// parseBirthYears decodes "-dob id=year,id=year" into a map. An empty value
// means no birth years; labels then fall back to the parity default.
func parseBirthYears(s string) (map[string]int, error) {
	if s == "" {
		return nil, nil
	}
	years := make(map[string]int)
	for _, entry := range strings.Split(s, ",") {
		id, year, ok := strings.Cut(entry, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("expected id=year, got %q", entry)
		}
		y, err := strconv.Atoi(year)
		if err != nil {
			return nil, fmt.Errorf("unparseable year in %q", entry)
		}
		years[id] = y
	}
	return years, nil
}

// serveCommand exposes a results database over HTTP.
func serveCommand(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", "results.db", "results database to serve")
	listen := fs.String("listen", ":8080", "listen address")
	fs.Parse(args)

	if *listen == "" {
		log.Fatal("listen address is required")
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open results database: %v", err)
	}
	defer database.Close()

	server := api.NewServer(database)
	mux := server.ServeMux()
	database.AttachAdminRoutes(mux)

	log.Printf("serving results from %s on %s", *dbPath, *listen)
	if err := http.ListenAndServe(*listen, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// purgeCommand physically removes soft-deleted rows.
func purgeCommand(args []string) {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	dbPath := fs.String("db", "results.db", "results database to purge")
	fs.Parse(args)

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open results database: %v", err)
	}
	defer database.Close()

	results, likelihoods, segs, err := database.PurgeDeleted()
	if err != nil {
		log.Fatalf("purge failed: %v", err)
	}
	log.Printf("purged %d results, %d likelihoods, %d segments", results, likelihoods, segs)
}

// migrateCommand manages the results database schema.
func migrateCommand(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", "results.db", "results database")
	fs.Parse(args)

	if fs.NArg() < 1 {
		log.Fatal("migrate: an action is required (up, down, status, force <version>)")
	}

	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open results database: %v", err)
	}
	defer database.Close()

	switch fs.Arg(0) {
	case "up":
		if err := database.MigrateUp(); err != nil {
			log.Fatalf("migration up failed: %v", err)
		}
		log.Println("migrations applied")
	case "down":
		if err := database.MigrateDown(); err != nil {
			log.Fatalf("migration down failed: %v", err)
		}
		log.Println("rolled back one migration")
	case "status":
		version, dirty, err := database.MigrateVersion()
		if err != nil {
			log.Fatalf("failed to read migration status: %v", err)
		}
		log.Printf("schema version %d (dirty: %v)", version, dirty)
	case "force":
		if fs.NArg() < 2 {
			log.Fatal("migrate force: a version argument is required")
		}
		v, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			log.Fatalf("invalid version %q", fs.Arg(1))
		}
		if err := database.MigrateForce(v); err != nil {
			log.Fatalf("migration force failed: %v", err)
		}
		log.Printf("schema version forced to %d", v)
	default:
		fmt.Fprintf(os.Stderr, "unknown migrate action: %s\n", fs.Arg(0))
		os.Exit(1)
	}
}
