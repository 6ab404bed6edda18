package compose

import (
	"html"
	"strings"
)

// Markup renders rich text for one destination format. Bold and Link expect
// text that has already been escaped.
type Markup interface {
	Escape(s string) string
	Bold(s string) string
	Link(url, text string) string
}

// TelegramHTML renders the subset of HTML accepted by the Telegram Bot API.
type TelegramHTML struct{}

func (TelegramHTML) Escape(s string) string { return html.EscapeString(s) }
func (TelegramHTML) Bold(s string) string   { return "<b>" + s + "</b>" }
func (TelegramHTML) Link(url, text string) string {
	return `<a href="` + html.EscapeString(url) + `">` + text + "</a>"
}

// SlackMrkdwn renders Slack's mrkdwn dialect.
type SlackMrkdwn struct{}

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func (SlackMrkdwn) Escape(s string) string { return slackEscaper.Replace(s) }
func (SlackMrkdwn) Bold(s string) string   { return "*" + s + "*" }
func (SlackMrkdwn) Link(url, text string) string {
	return "<" + slackEscaper.Replace(url) + "|" + text + ">"
}

// Plain renders unformatted text, used for log output.
type Plain struct{}

func (Plain) Escape(s string) string       { return s }
func (Plain) Bold(s string) string         { return s }
func (Plain) Link(url, text string) string { return text + ": " + url }
