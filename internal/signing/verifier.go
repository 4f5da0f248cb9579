package signing

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"inkporto/signing-portal/signing-portal-backend/pkg/eds"
)

// Verifier checks that a submitted signature covers the expected
// data-for-sign bytes and belongs to the authenticated user.
type Verifier struct {
	provider        eds.Provider
	providerTimeout time.Duration
	logger          *zap.Logger
}

func NewVerifier(provider eds.Provider, providerTimeout time.Duration, logger *zap.Logger) *Verifier {
	if providerTimeout <= 0 {
		providerTimeout = 15 * time.Second
	}
	return &Verifier{provider: provider, providerTimeout: providerTimeout, logger: logger}
}

// VerifyRequest is one signature envelope checked against one signable entry.
type VerifyRequest struct {
	Signature []byte
	Kind      SignatureKind
	Expected  SignableEntry
	User      SignerProfile
	// BatchIndex is the envelope's position within a multi-file signing
	// batch. Only the first entry undergoes the full content+identity
	// check; later entries are co-signatures of the same transaction.
	BatchIndex int
}

// VerifyResult carries the extracted certificate material on success.
type VerifyResult struct {
	CertificatePEM string
	Signer         *eds.SignerInfo
	// Processed is false for raw signatures accepted without an identity
	// check, recorded for audit.
	Processed bool
}

func (v *Verifier) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if req.Kind == KindRaw {
		return v.acceptRaw(req)
	}

	opts := eds.ExtractOptions{}
	switch req.Kind {
	case KindHash, KindDataExternal:
		// These containers do not self-describe their payload.
		opts.HashHint = []byte(req.Expected.DataForSign)
		opts.External = req.Kind == KindDataExternal
		if req.Kind == KindHash {
			opts.RawContent = []byte(req.Expected.DataForSign)
		}
	}

	extractCtx, cancel := context.WithTimeout(ctx, v.providerTimeout)
	defer cancel()

	info, err := v.provider.ExtractSignatureInfo(extractCtx, req.Signature, opts)
	if err != nil {
		return nil, &UpstreamError{Provider: "eds", Err: err}
	}
	if info == nil {
		// No extractable certificate: same rules as an explicit raw kind.
		return v.acceptRaw(req)
	}

	if req.Kind != KindTaxSignEncryptSign {
		if !bytes.Equal(info.Content, []byte(req.Expected.DataForSign)) {
			return nil, &ContentMismatchError{
				FileID:   req.Expected.FileID,
				Expected: req.Expected.DataForSign,
				Actual:   string(info.Content),
			}
		}
	}

	if req.BatchIndex == 0 {
		if err := checkIdentity(req.User, info.Signer); err != nil {
			return nil, err
		}
	}

	return &VerifyResult{
		CertificatePEM: info.CertificatePEM,
		Signer:         &info.Signer,
		Processed:      true,
	}, nil
}

// acceptRaw admits a certificate-less signature for batch entries after the
// first. A raw first entry is a hard failure: the primary signature of a
// transaction must always carry a verifiable identity.
func (v *Verifier) acceptRaw(req VerifyRequest) (*VerifyResult, error) {
	if req.BatchIndex == 0 {
		return nil, &InvalidStateError{Reason: "first signature of a batch must carry an extractable certificate"}
	}
	v.logger.Info("accepting raw co-signature without identity check",
		zap.String("file_id", req.Expected.FileID.String()),
		zap.Int("batch_index", req.BatchIndex))
	return &VerifyResult{Processed: false}, nil
}

// checkIdentity matches the certificate identity against the authenticated
// user: tax id (with the "<personal>-<company>" suffix convention), company
// tax id when both sides expose one, and normalized full name.
func checkIdentity(user SignerProfile, signer eds.SignerInfo) error {
	if user.TaxID == "" {
		return &InvalidStateError{Reason: "authenticated user has no tax id"}
	}

	userPersonal, userCompany := splitTaxID(user.TaxID)
	certPersonal, certCompany := splitTaxID(signer.TaxID)

	if userPersonal != certPersonal {
		return &IdentityMismatchError{Field: "tax id", Expected: user.TaxID, Actual: signer.TaxID}
	}

	if userCompany == "" {
		userCompany = user.CompanyTaxID
	}
	if certCompany == "" {
		certCompany = signer.CompanyTaxID
	}
	if userCompany != "" && certCompany != "" && userCompany != certCompany {
		return &IdentityMismatchError{Field: "company tax id", Expected: userCompany, Actual: certCompany}
	}

	certName := strings.TrimSpace(signer.Surname + " " + signer.GivenName)
	userName := strings.TrimSpace(user.FullName())
	if certName != "" && userName != "" {
		expected := normalizeName(userName)
		actual := normalizeName(certName)
		if expected != actual {
			return &IdentityMismatchError{Field: "name", Expected: expected, Actual: actual}
		}
	}

	return nil
}

// splitTaxID strips the appended company suffix from a combined
// "<personalId>-<companyId>" tax id.
func splitTaxID(taxID string) (personal, company string) {
	if i := strings.IndexByte(taxID, '-'); i >= 0 {
		return taxID[:i], taxID[i+1:]
	}
	return taxID, ""
}

var (
	testMarkerRe = regexp.MustCompile(`\((?:[^)]*(?:test|тест)[^)]*)\)`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// normalizeName lowercases, removes parenthetical test markers and collapses
// whitespace so that certificate and profile spellings compare equal.
func normalizeName(name string) string {
	n := strings.ToLower(name)
	n = testMarkerRe.ReplaceAllString(n, " ")
	n = whitespaceRe.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}
