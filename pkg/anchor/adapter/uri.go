package adapter

import (
	"fmt"
	"regexp"
	"strings"
)

const mongoScheme = "mongodb"

var credentialsPattern = regexp.MustCompile(`//.*@`)

// HideCredentials masks the user info part of a connection URI.
func HideCredentials(uri string) string {
	return credentialsPattern.ReplaceAllString(uri, "//***:***@")
}

// BuildURI derives the connection URI of an adapter from its config.
//
// A url wins over host/port, the database name being merged into its path.
// Without a url a database name is required.
func BuildURI(adapterName string, cfg Config) (string, error) {
	db := cfg.DatabaseName()

	if cfg.URL != "" {
		return MergeDatabaseIntoURL(cfg.URL, db), nil
	}
	if db == "" {
		return "", NewConfigurationError(adapterName, "", "No db name nor url provided")
	}

	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	return fmt.Sprintf("%s://%s:%d/%s", mongoScheme, host, port, db), nil
}

// MergeDatabaseIntoURL replaces the path of a connection URL with db while
// keeping scheme, credentials, host list and query string. An empty db
// returns the url untouched.
//
// Mongo URLs may list several hosts, which net/url refuses, so the URL is
// split by hand.
func MergeDatabaseIntoURL(rawURL string, db string) string {
	if db == "" {
		return rawURL
	}

	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return rawURL + "/" + db
	}

	hosts, tail, hasPath := strings.Cut(rest, "/")
	if !hasPath {
		// mongodb://h1,h2?replicaSet=rs
		if h, query, hasQuery := strings.Cut(hosts, "?"); hasQuery {
			return scheme + "://" + h + "/" + db + "?" + query
		}
		return rawURL + "/" + db
	}

	merged := scheme + "://" + hosts + "/" + db
	if _, query, hasQuery := strings.Cut(tail, "?"); hasQuery {
		merged += "?" + query
	}
	return merged
}
