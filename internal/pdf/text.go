package pdf

import "strings"

// Measure 返回文本在指定字号下的宽度（pt）。
func Measure(text string, m *Metrics, size float64) float64 {
	var w float64
	for _, r := range text {
		w += m.Advance(r)
	}
	return w * size
}

// Wrap 按空白切词并贪心折行。
// 单个超宽的词独占一行，不会被拆开；空输入返回空切片。
func Wrap(text string, m *Metrics, size, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := make([]string, 0, 4)
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if current != "" && Measure(candidate, m, size) > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
