package learn

import (
	"fmt"
	"time"

	"github.com/shahbajlive/templar/internal/confidence"
	"github.com/shahbajlive/templar/internal/merge"
	"github.com/shahbajlive/templar/internal/model"
	"github.com/shahbajlive/templar/internal/outliers"
	"github.com/shahbajlive/templar/internal/patterns"
)

// buildVariations produces the two standard cuts of the learned
// template. "core" keeps only tasks backed by a supermajority of
// examples; "comprehensive" keeps everything. Each cut is scored on the
// patterns that survive it, so core normally scores at least as high.
func (l *Learner) buildVariations(
	analyses []model.StoryAnalysis,
	detection *patterns.Detection,
	merged []merge.MergedTask,
	found []outliers.Outlier,
) []Variation {
	coreRatio := l.cfg.CoreRatio
	if coreRatio <= 0 {
		coreRatio = DefaultCoreRatio
	}

	total := len(analyses)
	var core []merge.MergedTask
	for _, mt := range merged {
		if float64(mt.ExampleCount()) >= coreRatio*float64(total) {
			core = append(core, mt)
		}
	}

	scorer := confidence.NewScorer(l.cfg.Weights)
	return []Variation{
		l.variation("core", analyses, filterDetection(detection, coreRatio), core, found, scorer),
		l.variation("comprehensive", analyses, detection, merged, found, scorer),
	}
}

// variation assembles one named cut with its own confidence score.
func (l *Learner) variation(
	name string,
	analyses []model.StoryAnalysis,
	detection *patterns.Detection,
	merged []merge.MergedTask,
	found []outliers.Outlier,
	scorer *confidence.Scorer,
) Variation {
	tpl := l.buildTemplate(analyses, merged)
	tpl.Name = fmt.Sprintf("%s-%s", tpl.Name, name)
	tpl.Description = fmt.Sprintf("%s (%s cut, %d tasks)", tpl.Description, name, len(merged))
	tpl.GeneratedAt = time.Now()

	return Variation{
		Name:       name,
		Template:   tpl,
		Confidence: scorer.Compute(analyses, detection, merged, found),
	}
}

// filterDetection narrows a detection to the patterns meeting the given
// frequency ratio, so a cut's confidence reflects the patterns it
// actually kept. Batch-level statistics carry over unchanged.
func filterDetection(detection *patterns.Detection, minRatio float64) *patterns.Detection {
	if detection == nil {
		return nil
	}
	filtered := *detection
	filtered.CommonTasks = nil
	for _, p := range detection.CommonTasks {
		if p.FrequencyRatio >= minRatio {
			filtered.CommonTasks = append(filtered.CommonTasks, p)
		}
	}
	return &filtered
}
