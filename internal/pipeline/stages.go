package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/pipeline/steps"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// Stage 1: distill the campaign brief
func (o *Orchestrator) runEssence(ctx context.Context, st *runState) StageResult {
	essence, err := o.generator.ExtractEssence(ctx, st.req.Description, st.goals())
	if err != nil {
		return fatal(KindEssence, err)
	}
	if essence == nil {
		return fatal(KindEssence, fmt.Errorf("empty essence"))
	}
	st.essence = essence
	return ok()
}

// Stage 2: research every prospect in batches with bounded concurrency.
// A failed call yields a fallback record; the stage is fatal only if every call fails.
func (o *Orchestrator) runResearch(ctx context.Context, st *runState) StageResult {
	def := steps.StageRegistry[steps.StageResearch]
	total := len(st.prospects)
	research := make([]types.ProspectResearch, total)
	sem := semaphore.NewWeighted(int64(o.cfg.ResearchConcurrency))

	var mu sync.Mutex
	failures := 0

	for start := 0; start < total; start += o.cfg.ResearchBatchSize {
		end := min(start+o.cfg.ResearchBatchSize, total)

		g, gCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			if err := sem.Acquire(gCtx, 1); err != nil {
				break
			}
			g.Go(func() error {
				defer sem.Release(1)
				p := st.prospects[i]
				r, err := o.generator.ResearchProspect(gCtx, p)
				if err != nil || r == nil {
					st.log.WithFields(logging.Fields{"stage": steps.StageResearch, "prospect_id": p.ID}).
						WithError(err).Warn("Prospect research failed, using fallback")
					mu.Lock()
					failures++
					mu.Unlock()
					research[i] = FallbackResearch(p)
					return nil
				}
				r.ProspectID = p.ID
				research[i] = *r
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return fatal(KindCancelled, err)
		}

		o.advance(ctx, st, def.Progress(end, total),
			fmt.Sprintf("Researched %d/%d prospects", end, total))
	}

	if failures == total {
		return fatal(KindResearch, fmt.Errorf("research failed for all %d prospects", total))
	}
	st.research = research
	o.recordFallbacks(steps.StageResearch, failures)
	return recovered(failures)
}

// Stage 3: cluster prospects into segments
func (o *Orchestrator) runSegmentation(ctx context.Context, st *runState) StageResult {
	segments, err := o.generator.Segment(ctx, st.essence, st.research, st.goals())
	if err != nil {
		return fatal(KindSegmentation, err)
	}
	if len(segments) == 0 {
		return fatal(KindSegmentation, ErrNoSegments)
	}
	seen := make(map[string]bool, len(segments))
	for i := range segments {
		id := strings.TrimSpace(segments[i].ID)
		if id == "" || seen[id] {
			id = fmt.Sprintf("segment-%d", i+1)
		}
		seen[id] = true
		segments[i].ID = id
	}
	st.segments = segments
	st.log.WithField("segments", len(segments)).Info("Segmented prospects")
	return ok()
}

// Stage 4: one pitch per segment, using the most relevant research samples
func (o *Orchestrator) runPitches(ctx context.Context, st *runState) StageResult {
	def := steps.StageRegistry[steps.StagePitch]
	pitches := make(types.PitchBySegment, len(st.segments))
	failures := 0

	for i, seg := range st.segments {
		samples := SelectSamples(st.research, seg, o.weights)
		pitch, err := o.generator.GeneratePitch(ctx, st.essence, seg, samples)
		if err != nil || pitch == nil || strings.TrimSpace(pitch.Body) == "" {
			if ctx.Err() != nil {
				return fatal(KindCancelled, ctx.Err())
			}
			st.log.WithFields(logging.Fields{"stage": steps.StagePitch, "segment_id": seg.ID}).
				WithError(err).Warn("Pitch generation failed, using fallback")
			fallback := FallbackPitch(st.essence, seg)
			pitch = &fallback
			failures++
		}
		pitch.SegmentID = seg.ID
		if len(pitch.SubjectLines) == 0 {
			pitch.SubjectLines = FallbackPitch(st.essence, seg).SubjectLines
		}
		pitches[seg.ID] = *pitch
		o.advance(ctx, st, def.Progress(i+1, len(st.segments)), fmt.Sprintf("Generated pitch for %s", seg.Name))
	}

	st.pitches = pitches
	o.recordFallbacks(steps.StagePitch, failures)
	return recovered(failures)
}

// Stage 5: assign each prospect a segment and resolve placeholders
func (o *Orchestrator) runPersonalization(_ context.Context, st *runState) StageResult {
	byProspect := make(map[string]*types.ProspectResearch, len(st.research))
	for i := range st.research {
		byProspect[st.research[i].ProspectID] = &st.research[i]
	}

	emails := make([]types.PersonalizedEmail, 0, len(st.prospects))
	fallbacks := 0
	for _, p := range st.prospects {
		research := byProspect[p.ID]
		seg := AssignSegment(p, research, st.segments, o.weights)
		pitch, found := st.pitches[seg.ID]
		if !found {
			pitch = FallbackPitch(st.essence, seg)
			fallbacks++
		}
		emails = append(emails, Personalize(p, research, seg, pitch))
	}

	st.emails = emails
	o.recordFallbacks(steps.StagePersonalization, fallbacks)
	return recovered(fallbacks)
}

// Stage 6: render every email to HTML with bounded concurrency; failures use the fixed layout
func (o *Orchestrator) runHTML(ctx context.Context, st *runState) StageResult {
	def := steps.StageRegistry[steps.StageHTML]
	total := len(st.emails)
	rendered := make([]types.RenderedEmail, total)
	sem := semaphore.NewWeighted(int64(o.cfg.HTMLConcurrency))

	var mu sync.Mutex
	done, failures := 0, 0

	g, gCtx := errgroup.WithContext(ctx)
	for i, email := range st.emails {
		if err := sem.Acquire(gCtx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			out := types.RenderedEmail{
				ProspectID:    email.ProspectID,
				ProspectEmail: email.ProspectEmail,
				SegmentID:     email.SegmentID,
				Subject:       email.Subject,
			}
			html, err := o.generator.RenderHTML(gCtx, email, st.essence)
			if err != nil || strings.TrimSpace(html) == "" {
				st.log.WithFields(logging.Fields{"stage": steps.StageHTML, "prospect_id": email.ProspectID}).
					WithError(err).Warn("HTML generation failed, using fallback layout")
				html = FallbackEmailHTML(email)
				out.Fallback = true
			}
			out.HTML = html
			rendered[i] = out

			mu.Lock()
			done++
			if out.Fallback {
				failures++
			}
			progress := def.Progress(done, total)
			mu.Unlock()
			o.advance(gCtx, st, progress, fmt.Sprintf("Rendered %d/%d emails", done, total))
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return fatal(KindCancelled, err)
	}

	st.rendered = rendered
	o.recordFallbacks(steps.StageHTML, failures)
	return recovered(failures)
}

func (o *Orchestrator) recordFallbacks(stage string, n int) {
	for i := 0; i < n; i++ {
		o.metrics.ItemFallback(stage)
	}
}
