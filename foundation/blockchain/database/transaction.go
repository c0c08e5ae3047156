package database

import (
	"encoding/json"
	"sort"
)

// SerializationVersion identifies the layout produced by Canonical. Signatures
// and block hashes are computed over this layout, so every node must produce
// it byte for byte. Any change to it requires a new version.
const SerializationVersion = 1

// TransactionData is the payload of a block: the ordered list of articles
// minted into it and the set of publishers the chain recognizes as of the
// block.
type TransactionData struct {
	Articles   []Article   `json:"articles"`
	Publishers []Publisher `json:"publishers"`
}

// NewTransactionData constructs the payload, keeping the article order and
// reducing the publishers to a set.
func NewTransactionData(articles []Article, publishers []Publisher) TransactionData {
	arts := make([]Article, len(articles))
	copy(arts, articles)

	return TransactionData{
		Articles:   arts,
		Publishers: publisherSet(publishers),
	}
}

// HasPublisher reports whether the key is in the publisher set.
func (td TransactionData) HasPublisher(key string) bool {
	for _, pub := range td.Publishers {
		if pub.PublicKey == key {
			return true
		}
	}
	return false
}

// Canonical returns the versioned serialization of the payload: a JSON object
// with the articles in insertion order and the publishers deduplicated and
// sorted by key.
func (td TransactionData) Canonical() string {
	arts := td.Articles
	if arts == nil {
		arts = []Article{}
	}

	v := TransactionData{
		Articles:   arts,
		Publishers: publisherSet(td.Publishers),
	}

	// Marshaling plain strings into a fixed struct can't fail.
	data, _ := json.Marshal(v)
	return string(data)
}

// publisherSet removes duplicate keys and sorts the publishers by key.
func publisherSet(publishers []Publisher) []Publisher {
	seen := make(map[string]struct{}, len(publishers))
	set := make([]Publisher, 0, len(publishers))
	for _, pub := range publishers {
		if _, exists := seen[pub.PublicKey]; exists {
			continue
		}
		seen[pub.PublicKey] = struct{}{}
		set = append(set, pub)
	}

	sort.Slice(set, func(i, j int) bool {
		return set[i].PublicKey < set[j].PublicKey
	})

	return set
}
