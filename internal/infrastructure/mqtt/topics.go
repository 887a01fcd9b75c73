package mqtt

import (
	"strings"

	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
)

// DefaultPrefix is the topic root used when none is configured.
const DefaultPrefix = "dictd"

// Topics builds the dictd topic hierarchy under Prefix:
//
//	<prefix>/status          online/offline, retained (LWT)
//	<prefix>/state/<path>    current value of a leaf, retained
//	<prefix>/set/<path>      inbound writes
//
// <path> is the node URI with ':' replaced by '/', so "laser1:power"
// becomes "laser1/power".
//
//	topics := mqtt.Topics{Prefix: "dictd/bench"}
//	topics.State("laser1:power") // "dictd/bench/state/laser1/power"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.Trim(t.Prefix, "/")
	if p == "" {
		return DefaultPrefix
	}
	return p
}

// Status returns the status topic.
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// State returns the state topic for the leaf at uri.
func (t Topics) State(uri string) string {
	return t.prefix() + "/state/" + PathFromURI(uri)
}

// Set returns the write topic for the leaf at uri.
func (t Topics) Set(uri string) string {
	return t.prefix() + "/set/" + PathFromURI(uri)
}

// AllSets returns a pattern matching every write topic.
//
// Pattern: <prefix>/set/#
func (t Topics) AllSets() string {
	return t.prefix() + "/set/#"
}

// URIFromSet extracts the node URI from a write topic. It reports false
// for topics outside <prefix>/set/.
func (t Topics) URIFromSet(topic string) (string, bool) {
	path, ok := strings.CutPrefix(topic, t.prefix()+"/set/")
	if !ok || path == "" {
		return "", false
	}
	return URIFromPath(path), true
}

// PathFromURI maps a node URI onto MQTT topic levels.
func PathFromURI(uri string) string {
	segments, err := tree.SplitURI(uri)
	if err != nil {
		return strings.ReplaceAll(uri, tree.Separator, "/")
	}
	return strings.Join(segments, "/")
}

// URIFromPath is the inverse of PathFromURI.
func URIFromPath(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", tree.Separator)
}
