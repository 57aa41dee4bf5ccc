package redhill

import (
	"errors"
	"fmt"
)

// Stage is one step of renderer setup: device, swap chain, heaps, root
// signature, pipeline state, frame resources. Teardown may be nil.
type Stage struct {
	Name     string
	Setup    func() error
	Teardown func() error
}

// Pipeline runs setup stages in order and tears them down in reverse.
//
// Run is idempotent: stages that already completed are skipped, so a later
// configuration can append stages and call Run again. When a stage fails,
// every stage completed by that Run call is torn down before Run returns,
// leaving the pipeline as it was before the call.
type Pipeline struct {
	stages []Stage
	done   int
}

// NewPipeline returns a pipeline with the given stages.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Add appends stages. They run on the next Run call.
func (p *Pipeline) Add(stages ...Stage) {
	p.stages = append(p.stages, stages...)
}

// Completed returns the names of the stages that are set up.
func (p *Pipeline) Completed() []string {
	names := make([]string, p.done)
	for i := range names {
		names[i] = p.stages[i].Name
	}
	return names
}

// Run sets up every stage not yet completed.
func (p *Pipeline) Run() (err error) {
	start := p.done
	defer func() {
		if err != nil {
			if terr := p.teardownTo(start); terr != nil {
				err = errors.Join(err, terr)
			}
		}
	}()

	for p.done < len(p.stages) {
		s := p.stages[p.done]
		if s.Setup != nil {
			if err := s.Setup(); err != nil {
				return fmt.Errorf("setup %s: %w", s.Name, err)
			}
		}
		Logger().Debug("redhill: setup stage complete", "stage", s.Name)
		p.done++
	}
	return nil
}

// Close tears down every completed stage in reverse order. Teardown errors
// are joined; all stages are attempted.
func (p *Pipeline) Close() error {
	return p.teardownTo(0)
}

func (p *Pipeline) teardownTo(n int) error {
	var errs []error
	for p.done > n {
		p.done--
		s := p.stages[p.done]
		if s.Teardown == nil {
			continue
		}
		if err := s.Teardown(); err != nil {
			errs = append(errs, fmt.Errorf("teardown %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
