package eds

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// SignerInfo holds the identity fields extracted from the signer certificate.
type SignerInfo struct {
	TaxID        string `json:"tax_id"`
	CompanyTaxID string `json:"company_tax_id,omitempty"`
	Surname      string `json:"surname,omitempty"`
	GivenName    string `json:"given_name,omitempty"`
}

// SignatureInfo is the result of parsing a signature container.
type SignatureInfo struct {
	Content        []byte
	CertificatePEM string
	Signer         SignerInfo
}

// ExtractOptions tunes container parsing for signature encodings that do not
// self-describe their payload.
type ExtractOptions struct {
	// HashHint is the expected data-for-sign; required for hash-based and
	// externally produced containers.
	HashHint []byte
	// External marks containers produced outside the platform.
	External bool
	// RawContent supplies the original content for hash-kind containers.
	RawContent []byte
}

// Provider parses detached signature containers and extracts the signer
// certificate fields. A nil SignatureInfo with nil error means the container
// carries no extractable certificate (a raw signature).
type Provider interface {
	ExtractSignatureInfo(ctx context.Context, signature []byte, opts ExtractOptions) (*SignatureInfo, error)
}

// envelope is the JSON container format understood by the built-in provider.
type envelope struct {
	Content        string      `json:"content"`
	CertificatePEM string      `json:"certificate_pem"`
	Signer         *SignerInfo `json:"signer"`
	Raw            bool        `json:"raw,omitempty"`
}

type envelopeProvider struct{}

// NewProvider returns the built-in provider used in development and tests. It
// understands a JSON envelope carrying base64 content, a certificate PEM and
// the signer fields; production deployments inject a provider backed by the
// national EDS library instead.
func NewProvider() Provider {
	return &envelopeProvider{}
}

func (p *envelopeProvider) ExtractSignatureInfo(ctx context.Context, signature []byte, opts ExtractOptions) (*SignatureInfo, error) {
	var env envelope
	if err := json.Unmarshal(signature, &env); err != nil {
		return nil, fmt.Errorf("failed to parse signature container: %w", err)
	}
	if env.Raw || env.Signer == nil {
		return nil, nil
	}

	content, err := base64.StdEncoding.DecodeString(env.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signed content: %w", err)
	}
	if len(content) == 0 && len(opts.HashHint) > 0 {
		// Hash-based containers carry no payload of their own.
		content = opts.HashHint
	}

	return &SignatureInfo{
		Content:        content,
		CertificatePEM: env.CertificatePEM,
		Signer:         *env.Signer,
	}, nil
}
