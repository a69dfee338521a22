package storage

import "fmt"

// Key schema for Pebble storage:
//
//	m:<matchId>      -> gob-encoded completed Match
//	s:<matchId>      -> gob-encoded SettlementRecord
//	w:root           -> current whitelist root (hex)
//	w:leaf:<index>   -> participant id element at that leaf index (hex)
const (
	prefixMatch      = "m:"
	prefixSettlement = "s:"
	prefixWhitelist  = "w:"
)

func matchKey(matchID string) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixMatch, matchID))
}

func matchPrefix() []byte {
	return []byte(prefixMatch)
}

func settlementKey(matchID string) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixSettlement, matchID))
}

func settlementPrefix() []byte {
	return []byte(prefixSettlement)
}

func whitelistRootKey() []byte {
	return []byte(prefixWhitelist + "root")
}

func whitelistLeafKey(index uint64) []byte {
	return []byte(fmt.Sprintf("%sleaf:%020d", prefixWhitelist, index))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
