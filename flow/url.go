package flow

import (
	"net/url"
	"strconv"
	"strings"
)

// BuildURL renders the configuration URL the remote flow is loaded from. It
// is pure and recomputed on every mount, so option mutations between opens
// take effect on the next mount.
//
// Parameter order is part of the contract: session_id, service, type, lang,
// then primary_color, secondary, and tier when set. The parameters are
// written explicitly because url.Values would not preserve order.
func BuildURL(cfg SessionConfig, opts DisplayOptions) string {
	mode := opts.Mode
	if mode == "" {
		mode = ModeModal
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}

	var b strings.Builder
	b.WriteString(cfg.BaseURL)

	sep := byte('?')
	if strings.ContainsRune(cfg.BaseURL, '?') {
		sep = '&'
	}
	param := func(key, value string) {
		b.WriteByte(sep)
		sep = '&'
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}

	param("session_id", cfg.SessionID)
	param("service", string(cfg.Service))
	param("type", string(mode))
	param("lang", lang)
	if opts.Colors.Primary != "" {
		param("primary_color", opts.Colors.Primary)
	}
	if opts.Colors.Secondary != 0 {
		param("secondary", strconv.Itoa(opts.Colors.Secondary))
	}
	if opts.Tier != 0 {
		param("tier", strconv.Itoa(opts.Tier))
	}
	return b.String()
}
