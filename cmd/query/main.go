// Command query runs one fused search from the command line: it encodes
// a free-text note, queries the scene collection, and prints the ranked
// results with the novelty verdict.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/AVSceneAI/scene-memory/engine/domain"
	"github.com/AVSceneAI/scene-memory/engine/encode"
	"github.com/AVSceneAI/scene-memory/engine/search"
	"github.com/AVSceneAI/scene-memory/engine/semantic"
)

func main() {
	var (
		qdrantAddr = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection = flag.String("collection", "scenes", "Qdrant collection name")
		text       = flag.String("text", "", "query text (required)")
		weather    = flag.String("weather", "", "filter: weather")
		timeOfDay  = flag.String("time", "", "filter: time of day")
		roadType   = flag.String("road", "", "filter: road type")
		bucket     = flag.String("bucket", "", "filter: location bucket")
		tsMin      = flag.Int64("ts-min", 0, "filter: earliest capture time (epoch seconds)")
		tsMax      = flag.Int64("ts-max", 0, "filter: latest capture time (epoch seconds)")
		topK       = flag.Int("top", 5, "results to return")
		limit      = flag.Int("limit", 10, "candidates per modality")
		wVision    = flag.Float64("w-vision", 0.40, "fusion weight: vision")
		wLidar     = flag.Float64("w-lidar", 0.30, "fusion weight: lidar")
		wRadar     = flag.Float64("w-radar", 0.15, "fusion weight: radar")
		wText      = flag.Float64("w-text", 0.15, "fusion weight: text")
		threshold  = flag.Float64("novelty-threshold", 0.78, "fused score below which the scene is novel")
		minResults = flag.Int("novelty-min", 3, "result count below which the scene is novel")
		timeout    = flag.Duration("timeout", 10*time.Second, "query timeout")
	)
	flag.Parse()

	if *text == "" {
		fmt.Fprintln(os.Stderr, "usage: query -text \"...\" [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	encCfg := encode.DefaultConfig()
	encoder, err := encode.New(encCfg)
	if err != nil {
		fatal("encoder: %v", err)
	}

	dims := make(map[domain.Modality]int, len(domain.Modalities))
	for _, m := range domain.Modalities {
		dims[m] = encCfg.DimFor(m)
	}
	store, err := semantic.New(*qdrantAddr, *collection, dims)
	if err != nil {
		fatal("qdrant connect: %v", err)
	}
	defer store.Close()

	vec, err := encoder.Text(*text)
	if err != nil {
		fatal("encode text: %v", err)
	}

	criteria := domain.FilterCriteria{}
	if *weather != "" {
		w := domain.Weather(*weather)
		criteria.Weather = &w
	}
	if *timeOfDay != "" {
		t := domain.TimeOfDay(*timeOfDay)
		criteria.TimeOfDay = &t
	}
	if *roadType != "" {
		r := domain.RoadType(*roadType)
		criteria.RoadType = &r
	}
	if *bucket != "" {
		criteria.LocationBucket = bucket
	}
	if *tsMin != 0 {
		criteria.TSMin = tsMin
	}
	if *tsMax != 0 {
		criteria.TSMax = tsMax
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc := search.New(store, nil, log)
	resp, err := svc.Search(ctx, search.Request{
		Vectors:          map[domain.Modality][]float32{domain.ModalityText: vec},
		Criteria:         criteria,
		Weights:          domain.FusionWeights{Vision: *wVision, Lidar: *wLidar, Radar: *wRadar, Text: *wText},
		LimitPerModality: *limit,
		TopK:             *topK,
		Novelty:          &search.NoveltyParams{ScoreThreshold: *threshold, MinResultCount: *minResults},
	})
	if err != nil {
		fatal("search: %v", err)
	}

	printResults(resp)
}

func printResults(resp *search.Response) {
	if len(resp.Results) == 0 {
		fmt.Println("no matching scenes")
	} else {
		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tSCENE\tFUSED\tEDGE TYPE\tLABEL")
		for i, r := range resp.Results {
			fmt.Fprintf(tw, "%d\t%s\t%.4f\t%s\t%s\n",
				i+1, r.SceneID, r.FusedScore, r.Attributes.EdgeType, r.Attributes.Label)
		}
		tw.Flush()
	}

	for _, st := range resp.Statuses {
		if st.Err != nil {
			fmt.Printf("warning: %s query degraded: %v\n", st.Modality, st.Err)
		}
	}

	if resp.Novel != nil {
		if *resp.Novel {
			fmt.Println("verdict: NOVEL scene, worth archiving")
		} else {
			fmt.Println("verdict: known scene")
		}
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
