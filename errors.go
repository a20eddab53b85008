/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/Seednode/jeopardy/trivia"
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func errorf(format string, args ...any) {
	log.Printf("%s | ERROR: "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

// roundFailure turns a failed round into text fit for the board.
func roundFailure(err error) string {
	switch {
	case errors.Is(err, trivia.ErrNetwork):
		return "Could not reach the trivia service. Press Restart to try again."
	case errors.Is(err, trivia.ErrMalformed):
		return "The trivia service sent something unexpected. Press Restart to try again."
	default:
		return "Something went wrong while setting up the board. Press Restart to try again."
	}
}

func newPage(cfg *Config, title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon(cfg))
	htmlBody.WriteString(fmt.Sprintf(`<link rel="stylesheet" href="%s/assets/jeopardy/app.css">`, cfg.prefix))
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))
	htmlBody.WriteString(fmt.Sprintf(`<body class="page"><a href="%s/">%s</a></body></html>`, cfg.prefix, html.EscapeString(body)))

	return htmlBody.String()
}
