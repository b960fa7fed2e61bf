// Command compare runs every solver on a scenario file and prints a table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"fleetplan/internal/config"
	"fleetplan/internal/opt"
	"fleetplan/internal/scenario"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		configPath = flag.String("config", ".", "config path containing app.env")
		timeLimit  = flag.Duration("csp-time", 0, "CSP time limit (default: CSP_TIME_LIMIT from config)")
		seed       = flag.Int64("seed", 0, "genetic seed (default: GA_SEED from config, 0 uses the clock)")
		tournament = flag.Bool("tournament", false, "use tournament selection in the genetic solver")
		mcv        = flag.Bool("most-constraining", false, "order CSP values most-constraining first")
		analyze    = flag.Bool("analyze", false, "print per-vehicle utilisation for each result")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] scenario.yaml\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	sc, err := scenario.Load(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Str("file", flag.Arg(0)).Msg("cannot load scenario")
	}

	o := opt.CompareOptions{
		CSP: opt.CSPOptions{MaxDeliveries: cfg.CSPMaxDeliveries, TimeLimit: cfg.CSPTimeLimit},
		Genetic: opt.GeneticOptions{
			PopulationSize: cfg.GAPopulation,
			Generations:    cfg.GAGenerations,
			Seed:           cfg.GASeed,
		},
	}
	if *timeLimit > 0 {
		o.CSP.TimeLimit = *timeLimit
	}
	if *seed != 0 {
		o.Genetic.Seed = *seed
	}
	if *tournament {
		o.Genetic.Selection = opt.SelectTournament
	}
	if *mcv {
		o.CSP.ValueOrder = opt.MostConstrainingFirst
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	start := time.Now()
	results, err := opt.Compare(ctx, sc.Problem, o)
	if err != nil {
		log.Fatal().Err(err).Msg("compare failed")
	}
	log.Info().Str("scenario", sc.Name).Dur("dur", time.Since(start)).Msg("compare done")

	fmt.Printf("%s: %d vehicles, %d deliveries, %d zones\n\n",
		sc.Name, len(sc.Problem.Vehicles), len(sc.Problem.Deliveries), len(sc.Problem.Zones))
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "algorithm\tcompleted\tdistance\tenergy\ttime ms\ttimed out\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d/%d\t%.2f\t%.2f\t%.2f\t%v\t\n",
			r.Algorithm, r.CompletedDeliveries, len(sc.Problem.Deliveries),
			r.TotalDistance, r.EnergyConsumption, r.ExecutionTimeMs, r.TimedOut)
	}
	_ = tw.Flush()

	if !*analyze {
		return
	}
	for _, r := range results {
		a, err := opt.Analyze(sc.Problem, r)
		if err != nil {
			log.Fatal().Err(err).Str("algorithm", r.Algorithm).Msg("analyze failed")
		}
		fmt.Printf("\n%s (avg utilisation %.1f%%, avg battery %.1f%%)\n", r.Algorithm, a.AvgUtilization, a.AvgBatteryShare)
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "vehicle\tdeliveries\tload\tutil %\tdistance\tbattery %\t")
		for _, v := range a.Vehicles {
			fmt.Fprintf(tw, "%d\t%d\t%.1f/%.1f\t%.1f\t%.2f\t%.1f\t\n",
				v.VehicleID, v.Deliveries, v.UsedWeight, v.MaxWeight, v.Utilization, v.Distance, v.BatteryShare)
		}
		_ = tw.Flush()
	}
}
