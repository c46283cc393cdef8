package genai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	sdk "google.golang.org/genai"

	"productscene/internal/domain"
	"productscene/internal/render"
)

// firstImage returns the first inline image of the first candidate.
func firstImage(resp *sdk.GenerateContentResponse) (*Result, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		reason := ""
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = fmt.Sprintf(" (blocked: %s)", resp.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("%w: no candidates returned%s", domain.ErrDecode, reason)
	}
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			img, err := render.Decode(part.InlineData.Data)
			if err != nil {
				return nil, err
			}
			b := img.Bounds()
			mime := part.InlineData.MIMEType
			if sniffed := render.SniffMIME(part.InlineData.Data); sniffed != "" {
				mime = sniffed
			}
			return &Result{
				Image:    img,
				Data:     part.InlineData.Data,
				MIMEType: mime,
				Width:    b.Dx(),
				Height:   b.Dy(),
			}, nil
		}
	}
	msg := "no image was generated"
	if candidate.FinishReason != "" && candidate.FinishReason != sdk.FinishReasonStop {
		msg += fmt.Sprintf(" (finish reason: %s)", candidate.FinishReason)
	}
	if text := firstText(resp); text != "" {
		msg += ": " + truncate(text, 200)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrDecode, msg)
}

// firstText joins the text parts of the first candidate.
func firstText(resp *sdk.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
