package engine

import (
	"github.com/chazu/threshold/pkg/batch"
	"github.com/chazu/threshold/pkg/floors"
	"github.com/chazu/threshold/pkg/model"
)

// Script is the result of evaluating source: the document the source
// declared and the floor batches it requested, in source order. Settings
// such as the host version live on Doc.Defaults.
type Script struct {
	Doc      *model.Document
	Requests []batch.Request
}

func newScript(doc *model.Document) *Script {
	return &Script{Doc: doc}
}

// Tier returns the floor-creation tier of the configured host version.
func (s *Script) Tier() floors.Tier {
	return floors.TierForVersion(s.Doc.Defaults.HostVersion)
}

// Run executes every requested batch against the document in order, using
// the script's host tier.
func (s *Script) Run() []*batch.Report {
	reports := make([]*batch.Report, 0, len(s.Requests))
	for _, req := range s.Requests {
		req.Tier = s.Tier()
		reports = append(reports, batch.Run(s.Doc, req))
	}
	return reports
}
