// Package tokenizer provisions a pretrained tokenizer for dataset
// preparation: loading by hub id or local path, guaranteeing mask and pad
// special tokens exist, and encoding batches of text to fixed-length token
// id and attention mask rows.
package tokenizer

import (
	"context"
	"fmt"
	"log/slog"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"

	"github.com/ZanzyTHEbar/textprep/prep/hub"
)

// Conventional literals probed before registering new special tokens.
var (
	maskTokenCandidates = []string{"[MASK]", "<mask>"}
	padTokenCandidates  = []string{"[PAD]", "<pad>"}
)

// Literals registered when a tokenizer defines no mask or pad token.
const (
	defaultMaskToken = "[MASK]"
	defaultPadToken  = "[PAD]"
)

// Handle wraps a loaded tokenizer together with its resolved mask and pad
// token ids and the fixed sequence length used for encoding.
type Handle struct {
	t      *tk.Tokenizer
	maskID int
	padID  int
	maxLen int
}

// Load resolves name (hub model id, tokenizer.json path, or directory
// containing one) to a tokenizer and ensures mask and pad tokens exist,
// registering them when absent. The vocabulary grows by 0, 1, or 2 entries
// depending on how many were missing.
func Load(ctx context.Context, name, cacheDir string, maxLen int) (*Handle, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("max length must be positive, got %d", maxLen)
	}

	path, err := hub.CachedPath(ctx, name, "tokenizer.json", cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tokenizer %s: %w", name, err)
	}

	inner, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", name, err)
	}
	inner.WithTruncation(&tk.TruncationParams{MaxLength: maxLen})

	h := &Handle{t: inner, maxLen: maxLen}
	if err := h.ensureSpecialTokens(); err != nil {
		return nil, err
	}

	slog.Info("Tokenizer ready",
		"name", name,
		"vocab_size", h.VocabSize(),
		"mask_token_id", h.maskID,
		"pad_token_id", h.padID)
	return h, nil
}

// ensureSpecialTokens resolves mask and pad token ids, extending the
// vocabulary in place when the tokenizer defines neither a conventional
// mask nor pad token. Existing ids are left unchanged.
func (h *Handle) ensureSpecialTokens() error {
	var err error
	h.maskID, err = h.resolveSpecial(maskTokenCandidates, defaultMaskToken, "mask")
	if err != nil {
		return err
	}
	h.padID, err = h.resolveSpecial(padTokenCandidates, defaultPadToken, "pad")
	return err
}

func (h *Handle) resolveSpecial(candidates []string, fallback, role string) (int, error) {
	for _, cand := range candidates {
		if id, ok := h.t.TokenToId(cand); ok {
			return id, nil
		}
	}

	slog.Warn("Special token not found, registering", "role", role, "token", fallback)
	added := tk.DefaultAddedToken()
	added.Content = fallback
	h.t.AddSpecialTokens([]tk.AddedToken{added})

	id, ok := h.t.TokenToId(fallback)
	if !ok {
		return 0, fmt.Errorf("failed to register %s token %q", role, fallback)
	}
	return id, nil
}

// MaskTokenID returns the resolved mask token id.
func (h *Handle) MaskTokenID() int { return h.maskID }

// PadTokenID returns the resolved pad token id.
func (h *Handle) PadTokenID() int { return h.padID }

// MaxLength returns the fixed sequence length of the handle.
func (h *Handle) MaxLength() int { return h.maxLen }

// VocabSize returns the vocabulary size including added tokens.
func (h *Handle) VocabSize() int {
	return h.t.GetVocabSize(true)
}

// EncodeBatch tokenizes texts with the handle's fixed policy: every row is
// padded with the pad token or truncated to exactly MaxLength ids, with a
// matching attention mask.
func (h *Handle) EncodeBatch(texts []string) (ids [][]int64, masks [][]int64, err error) {
	ids = make([][]int64, len(texts))
	masks = make([][]int64, len(texts))
	for i, txt := range texts {
		enc, err := h.t.Encode(tk.NewSingleEncodeInput(tk.NewInputSequence(txt)), true)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode text %d: %w", i, err)
		}
		ids[i], masks[i] = h.fixedLength(enc.GetIds(), enc.GetAttentionMask())
	}
	return ids, masks, nil
}

// fixedLength pads or truncates one encoding to maxLen.
func (h *Handle) fixedLength(rawIDs, rawMask []int) ([]int64, []int64) {
	rowIDs := make([]int64, h.maxLen)
	rowMask := make([]int64, h.maxLen)
	n := len(rawIDs)
	if n > h.maxLen {
		n = h.maxLen
	}
	for j := 0; j < n; j++ {
		rowIDs[j] = int64(rawIDs[j])
		if j < len(rawMask) {
			rowMask[j] = int64(rawMask[j])
		} else {
			rowMask[j] = 1
		}
	}
	for j := n; j < h.maxLen; j++ {
		rowIDs[j] = int64(h.padID)
	}
	return rowIDs, rowMask
}
