package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/reqquli/reqquli/internal/domain"
	"github.com/reqquli/reqquli/internal/ports"
)

func (s *Service) CreateTrace(ctx context.Context, actor Actor, req CreateTraceRequest) (TraceItem, error) {
	fromKind, err := domain.KindFromID(req.FromID)
	if err != nil {
		return TraceItem{}, err
	}
	toKind, err := domain.KindFromID(req.ToID)
	if err != nil {
		return TraceItem{}, err
	}
	if req.FromID == req.ToID {
		return TraceItem{}, fmt.Errorf("%w: a record cannot trace to itself", domain.ErrInvalidInput)
	}
	if err := domain.ValidateUserTrace(fromKind, toKind); err != nil {
		return TraceItem{}, err
	}

	// Both ends must exist and be live. resolveRecord reports a deleted or
	// missing end as not found, which is exactly the caller-facing answer.
	if _, err := s.resolveRecord(ctx, req.FromID); err != nil {
		return TraceItem{}, err
	}
	if _, err := s.resolveRecord(ctx, req.ToID); err != nil {
		return TraceItem{}, err
	}

	trace := domain.Trace{
		FromID:    req.FromID,
		FromKind:  fromKind,
		ToID:      req.ToID,
		ToKind:    toKind,
		CreatedBy: actor.UserID,
		CreatedAt: s.nowFn(),
	}
	event := s.newAuditEvent(actor, "trace", domain.AuditCreated, req.FromID, map[string]any{
		"from_id": req.FromID,
		"to_id":   req.ToID,
	})

	created, err := s.traces.Create(ctx, trace, event)
	if err != nil {
		return TraceItem{}, err
	}
	return toTraceItem(created), nil
}

func (s *Service) DeleteTrace(ctx context.Context, actor Actor, fromID, toID string) error {
	if _, err := domain.KindFromID(fromID); err != nil {
		return err
	}
	if _, err := domain.KindFromID(toID); err != nil {
		return err
	}

	event := s.newAuditEvent(actor, "trace", domain.AuditDeleted, fromID, map[string]any{
		"from_id": fromID,
		"to_id":   toID,
	})
	return s.traces.Delete(ctx, fromID, toID, event)
}

// ListTracesForRecord splits a record's traces into upstream (edges arriving
// at the record) and downstream (edges leaving it), resolving the far end of
// each edge. Edges whose far record has been deleted are dropped from the
// answer; the edge rows themselves stay untouched.
func (s *Service) ListTracesForRecord(ctx context.Context, recordID string) (RecordTracesResponse, error) {
	if _, err := s.resolveRecord(ctx, recordID); err != nil {
		return RecordTracesResponse{}, err
	}
	traces, err := s.traces.ListByRecord(ctx, recordID)
	if err != nil {
		return RecordTracesResponse{}, err
	}

	out := RecordTracesResponse{
		RecordID:   recordID,
		Upstream:   []TracedRecord{},
		Downstream: []TracedRecord{},
	}
	for _, tr := range traces {
		farID := tr.ToID
		if tr.ToID == recordID {
			farID = tr.FromID
		}
		far, err := s.resolveRecord(ctx, farID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return RecordTracesResponse{}, err
		}
		item := TracedRecord{
			ID:                far.ID,
			Kind:              string(far.Kind),
			Title:             far.Title,
			Status:            far.Status,
			IsSystemGenerated: tr.IsSystemGenerated,
		}
		if tr.ToID == recordID {
			out.Upstream = append(out.Upstream, item)
		} else {
			out.Downstream = append(out.Downstream, item)
		}
	}
	return out, nil
}

// TraceGraph returns every live record as a node and every trace whose both
// ends are live as a link.
func (s *Service) TraceGraph(ctx context.Context) (TraceGraphResponse, error) {
	nodes := []TraceGraphNode{}

	all := ports.RecordQuery{}
	userReqs, _, err := s.userRequirements.List(ctx, all)
	if err != nil {
		return TraceGraphResponse{}, err
	}
	for _, rec := range userReqs {
		nodes = append(nodes, TraceGraphNode{ID: rec.ID, Kind: string(rec.Kind), Title: rec.Title, Status: string(rec.Status)})
	}
	sysReqs, _, err := s.systemRequirements.List(ctx, all)
	if err != nil {
		return TraceGraphResponse{}, err
	}
	for _, rec := range sysReqs {
		nodes = append(nodes, TraceGraphNode{ID: rec.ID, Kind: string(rec.Kind), Title: rec.Title, Status: string(rec.Status)})
	}
	risks, _, err := s.risks.List(ctx, all)
	if err != nil {
		return TraceGraphResponse{}, err
	}
	for _, rec := range risks {
		nodes = append(nodes, TraceGraphNode{ID: rec.ID, Kind: string(domain.KindRisk), Title: rec.Title, Status: string(rec.Status)})
	}
	cases, _, err := s.testCases.List(ctx, all)
	if err != nil {
		return TraceGraphResponse{}, err
	}
	for _, rec := range cases {
		nodes = append(nodes, TraceGraphNode{ID: rec.ID, Kind: string(domain.KindTestCase), Title: rec.Title, Status: string(rec.Status)})
	}
	runs, _, err := s.testRuns.List(ctx, all)
	if err != nil {
		return TraceGraphResponse{}, err
	}
	for _, rec := range runs {
		nodes = append(nodes, TraceGraphNode{ID: rec.ID, Kind: string(domain.KindTestRun), Title: rec.Name, Status: string(rec.Status)})
	}

	live := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		live[n.ID] = struct{}{}
	}

	traces, err := s.traces.ListAll(ctx)
	if err != nil {
		return TraceGraphResponse{}, err
	}
	links := []TraceGraphLink{}
	for _, tr := range traces {
		if _, ok := live[tr.FromID]; !ok {
			continue
		}
		if _, ok := live[tr.ToID]; !ok {
			continue
		}
		links = append(links, TraceGraphLink{
			FromID:            tr.FromID,
			ToID:              tr.ToID,
			IsSystemGenerated: tr.IsSystemGenerated,
		})
	}

	return TraceGraphResponse{Nodes: nodes, Links: links}, nil
}
