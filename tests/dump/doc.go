/*
Package dump reads and writes snapshots of the Trading Agent contract taken
from a live network.

A snapshot holds the contract state together with all of its storage items,
so the ledger can be reproduced off-chain (see LoadStorage and ledger.Open).
Snapshots are plain files: contract states in JSON and storage items in CSV
with base64-encoded binary fields.
*/
package dump
