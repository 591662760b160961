package main

import (
	"fmt"
	"io"
	"time"

	"prologue/internal/pipeline"
)

var stageVerbs = map[pipeline.Stage]string{
	pipeline.StageExtract:    "extracted",
	pipeline.StageBundle:     "bundled",
	pipeline.StageSynthesize: "synthesized",
	pipeline.StageWrite:      "wrote",
}

func printStageTimings(out io.Writer, timings pipeline.Timings) {
	if out == nil {
		return
	}
	for _, stage := range pipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s %.1f ms\n", stageVerbs[stage], toMillis(timings.Duration(stage))); err != nil {
			panic(err)
		}
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
