package domain

import (
	"net/url"
	"strings"
	"time"
)

// DefaultPrefix namespaces caches, sync tags and control messages when
// no prefix is configured.
const DefaultPrefix = "duewell"

// Purpose identifies what a snapshot namespace is used for.
type Purpose string

const (
	// PurposeStatic holds the application shell and precached assets.
	PurposeStatic Purpose = "static"

	// PurposeDynamic holds runtime-cached pages and assets outside the API.
	PurposeDynamic Purpose = "dynamic"

	// PurposeAPI holds cached API responses.
	PurposeAPI Purpose = "api"
)

// Purposes returns all namespace purposes in a stable order.
func Purposes() []Purpose {
	return []Purpose{PurposeStatic, PurposeDynamic, PurposeAPI}
}

// Namespace identifies one versioned snapshot namespace. The textual form
// is "<prefix>-<purpose>-<buildVersion>"; a new build version yields a
// fresh generation of namespaces, and activation drops every namespace
// under the prefix whose version differs from the active one.
type Namespace struct {
	Prefix       string
	Purpose      Purpose
	BuildVersion string
}

// Name returns the textual namespace name.
func (n Namespace) Name() string {
	return n.Prefix + "-" + string(n.Purpose) + "-" + n.BuildVersion
}

// ParseNamespace splits a namespace name back into its parts. It reports
// false for names that do not contain a known purpose token.
func ParseNamespace(name string) (Namespace, bool) {
	for _, p := range Purposes() {
		sep := "-" + string(p) + "-"
		i := strings.Index(name, sep)
		if i <= 0 {
			continue
		}
		version := name[i+len(sep):]
		if version == "" {
			continue
		}
		return Namespace{Prefix: name[:i], Purpose: p, BuildVersion: version}, true
	}
	return Namespace{}, false
}

// BelongsTo reports whether a namespace name is owned by the given prefix.
// Foreign names are never touched by activation purges or manual clears.
func BelongsTo(name, prefix string) bool {
	return strings.HasPrefix(name, prefix+"-")
}

// versionTimeLayout formats the timestamp fallback build version.
const versionTimeLayout = "20060102150405"

// ResolveBuildVersion determines the build version for the current
// generation. An injected version wins; otherwise a "v" or "build" query
// parameter on the upstream URL is used; otherwise the version persisted
// by the previous run, so a restart resumes its generation instead of
// minting and purging one; otherwise the start timestamp.
func ResolveBuildVersion(injected, upstreamURL, stored string, now time.Time) string {
	if injected != "" {
		return injected
	}
	if u, err := url.Parse(upstreamURL); err == nil {
		q := u.Query()
		if v := q.Get("v"); v != "" {
			return v
		}
		if v := q.Get("build"); v != "" {
			return v
		}
	}
	if stored != "" {
		return stored
	}
	return now.UTC().Format(versionTimeLayout)
}
