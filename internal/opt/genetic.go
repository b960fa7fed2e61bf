package opt

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

// Selection picks how parents are drawn each generation.
type Selection int

const (
	// SelectTruncation draws parents uniformly from the fitter half.
	SelectTruncation Selection = iota
	// SelectTournament draws parents from a pool of tournament winners and
	// applies crossover with probability CrossoverRate.
	SelectTournament
)

func (s Selection) String() string {
	if s == SelectTournament {
		return "tournament"
	}
	return "truncation"
}

const (
	DefaultPopulationSize = 50
	DefaultGenerations    = 100
	DefaultMutationRate   = 0.1
	DefaultElitismRate    = 0.2
	DefaultCrossoverRate  = 0.8
	DefaultTournamentSize = 3

	capacityPenalty = 100.0
	pathPenalty     = 200.0
	latePenalty     = 50.0
	distanceCost    = 0.5
	parentPoolRate  = 0.5
)

// GeneticOptions configures SolveGenetic; zero fields take the defaults.
type GeneticOptions struct {
	PopulationSize int
	Generations    int
	// MutationRate and ElitismRate below zero switch the operator off.
	MutationRate float64
	ElitismRate  float64
	CrossoverRate  float64
	TournamentSize int
	Selection      Selection
	// Seed fixes the random stream; 0 seeds from the clock.
	Seed int64
}

func (o GeneticOptions) withDefaults() GeneticOptions {
	if o.PopulationSize <= 0 {
		o.PopulationSize = DefaultPopulationSize
	}
	if o.Generations <= 0 {
		o.Generations = DefaultGenerations
	}
	switch {
	case o.MutationRate == 0:
		o.MutationRate = DefaultMutationRate
	case o.MutationRate < 0:
		o.MutationRate = 0
	}
	switch {
	case o.ElitismRate == 0:
		o.ElitismRate = DefaultElitismRate
	case o.ElitismRate < 0:
		o.ElitismRate = 0
	}
	if o.CrossoverRate <= 0 {
		o.CrossoverRate = DefaultCrossoverRate
	}
	if o.TournamentSize <= 0 {
		o.TournamentSize = DefaultTournamentSize
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}

// chromosome holds one vehicle index per gene.
type chromosome []int

type genetic struct {
	p        Problem
	o        GeneticOptions
	rng      *rand.Rand
	genes    []int   // delivery index per gene
	eligible [][]int // vehicle indexes per gene
}

// SolveGenetic evolves delivery -> vehicle vectors for a fixed number of
// generations and reports the fittest one. Only genes that replay feasibly
// (capacity, path and window) end up in the routes.
func SolveGenetic(p Problem, o GeneticOptions) (Result, error) {
	started := time.Now()
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	o = o.withDefaults()
	g := &genetic{p: p, o: o, rng: rand.New(rand.NewSource(o.Seed))}
	for di, d := range p.Deliveries {
		if InAnyZone(d.Pos, d.Window.Start, p.Zones) {
			continue
		}
		g.genes = append(g.genes, di)
		g.eligible = append(g.eligible, g.eligibleVehicles(d))
	}
	if len(g.genes) == 0 {
		return newPlan(len(p.Vehicles)).finish(p, AlgoGenetic, started)
	}

	pop := make([]chromosome, o.PopulationSize)
	for i := range pop {
		pop[i] = g.random()
	}
	for gen := 0; gen < o.Generations; gen++ {
		pop = g.next(pop)
	}
	best, bestFit := pop[0], g.fitness(pop[0])
	for _, c := range pop[1:] {
		if f := g.fitness(c); f > bestFit {
			best, bestFit = c, f
		}
	}
	return g.replay(best).finish(p, AlgoGenetic, started)
}

// eligibleVehicles lists vehicles with enough capacity and a clear direct
// path from their start at time 0.
func (g *genetic) eligibleVehicles(d Delivery) []int {
	var out []int
	for vi, v := range g.p.Vehicles {
		if v.MaxWeight >= d.Weight && RouteValid(v.Start, d.Pos, 0, v.Speed, g.p.Zones) {
			out = append(out, vi)
		}
	}
	return out
}

// pick draws an eligible vehicle for gene i, or fallback when none qualify.
func (g *genetic) pick(i, fallback int) int {
	if len(g.eligible[i]) == 0 {
		return fallback
	}
	return g.eligible[i][g.rng.Intn(len(g.eligible[i]))]
}

func (g *genetic) random() chromosome {
	c := make(chromosome, len(g.genes))
	for i := range c {
		c[i] = g.pick(i, 0)
	}
	return c
}

func (g *genetic) fitness(c chromosome) float64 {
	fleet := newFleetState(g.p.Vehicles)
	score, penalty := 0.0, 0.0
	for i, vi := range c {
		d := g.p.Deliveries[g.genes[i]]
		v := g.p.Vehicles[vi]
		st := fleet[vi]
		if st.load+d.Weight > v.MaxWeight {
			penalty += capacityPenalty
		} else {
			st.load += d.Weight
			score += float64(d.Priority) * priorityWeight
		}
		if !RouteValid(st.pos, d.Pos, st.time, v.Speed, g.p.Zones) {
			penalty += pathPenalty
		}
		dist := Distance(st.pos, d.Pos)
		arrival := st.time + dist/v.Speed
		if arrival > d.Window.End {
			penalty += latePenalty
		}
		score -= distanceCost * dist
		st.pos, st.time = d.Pos, arrival
		fleet[vi] = st
	}
	return math.Max(0, score-penalty)
}

// replay commits the genes of c that are feasible in gene order.
func (g *genetic) replay(c chromosome) plan {
	fleet := newFleetState(g.p.Vehicles)
	pl := newPlan(len(g.p.Vehicles))
	for i, vi := range c {
		di := g.genes[i]
		d := g.p.Deliveries[di]
		v := g.p.Vehicles[vi]
		st := fleet[vi]
		if st.load+d.Weight > v.MaxWeight {
			continue
		}
		arrival := st.time + Distance(st.pos, d.Pos)/v.Speed
		if arrival > d.Window.End {
			continue
		}
		if !RouteValid(st.pos, d.Pos, st.time, v.Speed, g.p.Zones) {
			continue
		}
		pl.add(vi, di)
		fleet[vi] = vehicleState{pos: d.Pos, load: st.load + d.Weight, time: arrival}
	}
	return pl
}

func (g *genetic) next(pop []chromosome) []chromosome {
	fit := make([]float64, len(pop))
	for i, c := range pop {
		fit[i] = g.fitness(c)
	}
	ranked := make([]int, len(pop))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool { return fit[ranked[a]] > fit[ranked[b]] })

	size := g.o.PopulationSize
	elite := int(math.Ceil(float64(size) * g.o.ElitismRate))
	if elite > size {
		elite = size
	}
	out := make([]chromosome, 0, size)
	for i := 0; i < elite; i++ {
		out = append(out, append(chromosome(nil), pop[ranked[i]]...))
	}

	var pool []chromosome
	if g.o.Selection == SelectTournament {
		pool = g.tournament(pop, fit)
	}
	for len(out) < size {
		var a, b chromosome
		if g.o.Selection == SelectTournament {
			a, b = pool[g.rng.Intn(len(pool))], pool[g.rng.Intn(len(pool))]
		} else {
			a, b = pop[ranked[g.parentRank(size)]], pop[ranked[g.parentRank(size)]]
		}
		c1, c2 := g.crossover(a, b)
		out = append(out, g.mutate(c1))
		if len(out) < size {
			out = append(out, g.mutate(c2))
		}
	}
	return out
}

// parentRank draws a rank uniformly from the fitter half of the population.
func (g *genetic) parentRank(size int) int {
	r := int(g.rng.Float64() * float64(size) * parentPoolRate)
	if r >= size {
		r = size - 1
	}
	return r
}

func (g *genetic) tournament(pop []chromosome, fit []float64) []chromosome {
	out := make([]chromosome, len(pop))
	for i := range out {
		best := g.rng.Intn(len(pop))
		for j := 1; j < g.o.TournamentSize; j++ {
			if c := g.rng.Intn(len(pop)); fit[c] > fit[best] {
				best = c
			}
		}
		out[i] = pop[best]
	}
	return out
}

// crossover swaps the tails of a and b at a random cut.
func (g *genetic) crossover(a, b chromosome) (chromosome, chromosome) {
	if g.o.Selection == SelectTournament && g.rng.Float64() > g.o.CrossoverRate {
		return append(chromosome(nil), a...), append(chromosome(nil), b...)
	}
	cut := g.rng.Intn(len(a))
	c1 := make(chromosome, 0, len(a))
	c1 = append(append(c1, a[:cut]...), b[cut:]...)
	c2 := make(chromosome, 0, len(b))
	c2 = append(append(c2, b[:cut]...), a[cut:]...)
	return c1, c2
}

func (g *genetic) mutate(c chromosome) chromosome {
	for i := range c {
		if g.rng.Float64() < g.o.MutationRate {
			c[i] = g.pick(i, c[i])
		}
	}
	return c
}
