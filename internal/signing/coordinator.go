package signing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Coordinator tracks which users have signed or rejected a document and
// enforces the template's signer order and minimum quorum. It always re-reads
// the signature history at decision time; nothing is decided from state read
// earlier in a request.
type Coordinator struct {
	ledger        Ledger
	notifier      Notifier
	defaultQuorum float64
	logger        *zap.Logger
}

func NewCoordinator(ledger Ledger, notifier Notifier, defaultQuorum float64, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		ledger:        ledger,
		notifier:      notifier,
		defaultQuorum: defaultQuorum,
		logger:        logger,
	}
}

// NextSigner returns the next required signer when order is enforced, nil
// when order is off, there is no multi-sign requirement, or everyone in the
// configured sequence has signed. A recorded signature that contradicts the
// configured sequence is a consistency fault and raises OrderViolationError.
func (c *Coordinator) NextSigner(ctx context.Context, documentID uuid.UUID, cfg *TemplateConfig) (*uuid.UUID, error) {
	if cfg == nil || !cfg.IsOrderEnforced || len(cfg.RequiredSignerIDs) == 0 {
		return nil, nil
	}

	sigs, err := c.ledger.ListSignatures(ctx, documentID, ChannelDocument)
	if err != nil {
		return nil, &UpstreamError{Provider: "persistence", Err: err}
	}

	required := make(map[uuid.UUID]bool, len(cfg.RequiredSignerIDs))
	for _, id := range cfg.RequiredSignerIDs {
		required[id] = true
	}

	pos := 0
	for _, sig := range sigs {
		// Signers outside the required list (e.g. a performer) may
		// co-sign at any time without affecting the sequence.
		if !required[sig.CreatedBy] {
			continue
		}
		if pos >= len(cfg.RequiredSignerIDs) {
			break
		}
		if sig.CreatedBy != cfg.RequiredSignerIDs[pos] {
			return nil, &OrderViolationError{
				Position:         pos,
				ExpectedSignerID: cfg.RequiredSignerIDs[pos],
				ActualSignerID:   sig.CreatedBy,
			}
		}
		pos++
	}

	if pos >= len(cfg.RequiredSignerIDs) {
		return nil, nil
	}
	next := cfg.RequiredSignerIDs[pos]
	return &next, nil
}

// QuorumPercent computes the share of distinct required signers with a
// recorded signature. Returns 0 when no signers are required.
func QuorumPercent(sigs []SignatureRecord, requiredSignerIDs []uuid.UUID) float64 {
	if len(requiredSignerIDs) == 0 {
		return 0
	}
	required := make(map[uuid.UUID]bool, len(requiredSignerIDs))
	for _, id := range requiredSignerIDs {
		required[id] = true
	}
	signed := make(map[uuid.UUID]bool)
	for _, sig := range sigs {
		if required[sig.CreatedBy] {
			signed[sig.CreatedBy] = true
		}
	}
	return float64(len(signed)) / float64(len(requiredSignerIDs)) * 100
}

// HandleQuorum re-reads the signature history after newSigner signed and
// reports whether this particular signature crossed the quorum threshold.
// The notification fires only on the crossing, which keeps re-computation on
// an already-reached document from re-notifying: only the sign mutation calls
// this, and only the crossing sign satisfies before < quorum <= after.
func (c *Coordinator) HandleQuorum(ctx context.Context, documentID, newSigner uuid.UUID, cfg *TemplateConfig) (bool, error) {
	if cfg == nil || len(cfg.RequiredSignerIDs) == 0 {
		// Quorum is opt-in; documents without required signers skip it.
		return false, nil
	}

	sigs, err := c.ledger.ListSignatures(ctx, documentID, ChannelDocument)
	if err != nil {
		return false, &UpstreamError{Provider: "persistence", Err: err}
	}

	quorum := c.defaultQuorum
	if cfg.MinQuorumPercent != nil {
		quorum = *cfg.MinQuorumPercent
	}

	after := QuorumPercent(sigs, cfg.RequiredSignerIDs)

	var withoutNew []SignatureRecord
	for _, sig := range sigs {
		if sig.CreatedBy != newSigner {
			withoutNew = append(withoutNew, sig)
		}
	}
	before := QuorumPercent(withoutNew, cfg.RequiredSignerIDs)

	if !(before < quorum && after >= quorum) {
		return false, nil
	}

	c.logger.Info("signing quorum reached",
		zap.String("document_id", documentID.String()),
		zap.Float64("percent", after),
		zap.Float64("quorum", quorum))

	if c.notifier != nil {
		if err := c.notifier.Notify(ctx, cfg.RequiredSignerIDs,
			"Signing quorum reached",
			fmt.Sprintf("Document %s collected %.0f%% of required signatures.", documentID, after),
			"signing_quorum_reached"); err != nil {
			c.logger.Warn("failed to send quorum notification",
				zap.String("document_id", documentID.String()), zap.Error(err))
		}
	}

	return true, nil
}

// NotifyNextSigner tells the next required signer it is their turn. Failures
// are logged only.
func (c *Coordinator) NotifyNextSigner(ctx context.Context, documentID, nextSigner uuid.UUID) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, []uuid.UUID{nextSigner},
		"Document awaits your signature",
		fmt.Sprintf("You are next in the signing order for document %s.", documentID),
		"signing_next_signer"); err != nil {
		c.logger.Warn("failed to notify next signer",
			zap.String("document_id", documentID.String()),
			zap.String("user_id", nextSigner.String()),
			zap.Error(err))
	}
}

// RecordAction appends one row to the signing activity log.
func (c *Coordinator) RecordAction(ctx context.Context, documentID, actorID uuid.UUID, action ActivityAction, detail string) error {
	rec := &ActivityRecord{
		ID:         uuid.New(),
		DocumentID: documentID,
		Action:     action,
		ActorID:    actorID,
		Detail:     detail,
	}
	if err := c.ledger.AppendActivity(ctx, rec); err != nil {
		return &UpstreamError{Provider: "persistence", Err: err}
	}
	return nil
}

// State derives the multi-sign view of a document from the current history.
func (c *Coordinator) State(ctx context.Context, documentID uuid.UUID, cfg *TemplateConfig) (*MultiSignState, error) {
	sigs, err := c.ledger.ListSignatures(ctx, documentID, ChannelDocument)
	if err != nil {
		return nil, &UpstreamError{Provider: "persistence", Err: err}
	}
	rejs, err := c.ledger.ListRejections(ctx, documentID)
	if err != nil {
		return nil, &UpstreamError{Provider: "persistence", Err: err}
	}

	state := &MultiSignState{}
	seen := make(map[uuid.UUID]bool)
	for _, sig := range sigs {
		if !seen[sig.CreatedBy] {
			seen[sig.CreatedBy] = true
			state.SignedByUserIDs = append(state.SignedByUserIDs, sig.CreatedBy)
		}
	}
	for _, rej := range rejs {
		state.RejectedByUserIDs = append(state.RejectedByUserIDs, rej.CreatedBy)
	}

	if cfg != nil {
		state.RequiredSignerIDs = cfg.RequiredSignerIDs
		state.IsOrderEnforced = cfg.IsOrderEnforced
		state.MinQuorumPercent = cfg.MinQuorumPercent

		if len(cfg.RequiredSignerIDs) > 0 {
			quorum := c.defaultQuorum
			if cfg.MinQuorumPercent != nil {
				quorum = *cfg.MinQuorumPercent
			}
			state.QuorumReached = QuorumPercent(sigs, cfg.RequiredSignerIDs) >= quorum
		}

		next, err := c.NextSigner(ctx, documentID, cfg)
		if err != nil {
			return nil, err
		}
		state.NextSignerID = next
	}

	return state, nil
}
