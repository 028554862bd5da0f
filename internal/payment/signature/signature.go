package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/sokobiz/sokobiz/internal/payment/domain"
)

// Config configures webhook authentication.
type Config struct {
	// Secret is the shared HMAC key agreed with the provider.
	Secret string
	// AllowUnsigned admits callbacks carrying no signature headers at all.
	// Present-but-wrong headers always reject regardless of this flag.
	AllowUnsigned bool
}

// Verifier checks the content digest and message signature on inbound
// provider callbacks. Nothing in the payload is trusted before both checks
// pass.
type Verifier struct {
	secret        []byte
	allowUnsigned bool
}

func NewVerifier(cfg Config) *Verifier {
	var secret []byte
	if s := strings.TrimSpace(cfg.Secret); s != "" {
		secret = []byte(s)
	}
	return &Verifier{
		secret:        secret,
		allowUnsigned: cfg.AllowUnsigned,
	}
}

// Verify authenticates the raw body against the request headers. The
// Content-Digest header carries an RFC 9530 digest (`sha-256=:BASE64:`);
// the Signature header carries `v1=<hex>`, an HMAC-SHA256 over
// "<signature-date>\n<content-digest>\n<sha256(body) hex>".
func (v *Verifier) Verify(body []byte, headers http.Header) error {
	digestHeader := strings.TrimSpace(headers.Get("Content-Digest"))
	sigHeader := strings.TrimSpace(headers.Get("Signature"))

	if digestHeader == "" && sigHeader == "" {
		if v.allowUnsigned {
			return nil
		}
		return fmt.Errorf("%w: no signature headers", domain.ErrVerificationFailed)
	}

	if digestHeader != "" {
		if err := v.verifyDigest(body, digestHeader); err != nil {
			return err
		}
	}

	if sigHeader == "" {
		if v.allowUnsigned {
			return nil
		}
		return fmt.Errorf("%w: missing Signature header", domain.ErrVerificationFailed)
	}
	return v.verifySignature(body, digestHeader, sigHeader, strings.TrimSpace(headers.Get("Signature-Date")))
}

func (v *Verifier) verifyDigest(body []byte, header string) error {
	algo, encoded, err := parseContentDigest(header)
	if err != nil {
		return err
	}

	var sum []byte
	switch algo {
	case "sha-256":
		s := sha256.Sum256(body)
		sum = s[:]
	case "sha-512":
		s := sha512.Sum512(body)
		sum = s[:]
	default:
		return fmt.Errorf("%w: unsupported digest algorithm %q", domain.ErrVerificationFailed, algo)
	}

	claimed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: malformed Content-Digest", domain.ErrVerificationFailed)
	}
	if subtle.ConstantTimeCompare(sum, claimed) != 1 {
		return fmt.Errorf("%w: body digest mismatch", domain.ErrVerificationFailed)
	}
	return nil
}

func (v *Verifier) verifySignature(body []byte, digestHeader, sigHeader, date string) error {
	if len(v.secret) == 0 {
		return fmt.Errorf("%w: no webhook secret configured", domain.ErrVerificationFailed)
	}

	signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return err
	}

	bodySum := sha256.Sum256(body)
	canonical := date + "\n" + digestHeader + "\n" + hex.EncodeToString(bodySum[:])

	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write([]byte(canonical))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("%w: signature mismatch", domain.ErrVerificationFailed)
}

// parseContentDigest splits `sha-256=:BASE64:` into algorithm and payload.
func parseContentDigest(header string) (string, string, error) {
	for _, part := range strings.Split(header, ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		algo := strings.ToLower(strings.TrimSpace(keyValue[0]))
		value := strings.TrimSpace(keyValue[1])
		if !strings.HasPrefix(value, ":") || !strings.HasSuffix(value, ":") || len(value) < 2 {
			continue
		}
		return algo, value[1 : len(value)-1], nil
	}
	return "", "", fmt.Errorf("%w: malformed Content-Digest", domain.ErrVerificationFailed)
}

// parseSignatureHeader extracts every v1 signature from `v1=<hex>[,v1=...]`.
func parseSignatureHeader(header string) ([]string, error) {
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		if strings.TrimSpace(keyValue[0]) == "v1" {
			signatures = append(signatures, strings.TrimSpace(keyValue[1]))
		}
	}
	if len(signatures) == 0 {
		return nil, fmt.Errorf("%w: malformed Signature header", domain.ErrVerificationFailed)
	}
	return signatures, nil
}

// MaskForLog truncates a header value so failed attempts can be logged
// without leaking secret material.
func MaskForLog(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 8 {
		return value
	}
	return value[:8] + "..."
}
