package bot

import "strings"

// markdownEscaper prefixes every character MarkdownV2 reserves. Applied to
// user-supplied content interpolated into rich-text output; plain-text
// views are left verbatim so emails stay copyable.
var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"`", "\\`",
	"~", "\\~",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
