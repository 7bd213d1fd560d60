package sqldb

// uint64 values are stored bit-cast into signed 64 bit columns.
var ledgerQueries = map[string]string{
	"selectNonce": `SELECT nonce FROM ledger_nonce WHERE id = 1`,
	"upsertNonce": `INSERT INTO ledger_nonce (id, nonce) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET nonce = excluded.nonce`,

	"selectAsset": `SELECT lineage_seed, price, generation FROM asset WHERE id = ?`,
	"upsertAsset": `INSERT INTO asset (id, lineage_seed, price, generation) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			lineage_seed = excluded.lineage_seed,
			price = excluded.price,
			generation = excluded.generation`,

	"selectOwner": `SELECT owner FROM asset_owner WHERE asset_id = ?`,
	"upsertOwner": `INSERT INTO asset_owner (asset_id, owner) VALUES (?, ?)
		ON CONFLICT (asset_id) DO UPDATE SET owner = excluded.owner`,

	"selectCount": `SELECT total FROM enumeration_count WHERE scope = ?`,
	"upsertCount": `INSERT INTO enumeration_count (scope, total) VALUES (?, ?)
		ON CONFLICT (scope) DO UPDATE SET total = excluded.total`,

	"selectSlot": `SELECT asset_id FROM enumeration_slot WHERE scope = ? AND slot_index = ?`,
	"upsertSlot": `INSERT INTO enumeration_slot (scope, slot_index, asset_id) VALUES (?, ?, ?)
		ON CONFLICT (scope, slot_index) DO UPDATE SET asset_id = excluded.asset_id`,
	"deleteSlot": `DELETE FROM enumeration_slot WHERE scope = ? AND slot_index = ?`,

	"selectPosition": `SELECT slot_index FROM enumeration_position WHERE scope = ? AND asset_id = ?`,
	"upsertPosition": `INSERT INTO enumeration_position (scope, asset_id, slot_index) VALUES (?, ?, ?)
		ON CONFLICT (scope, asset_id) DO UPDATE SET slot_index = excluded.slot_index`,
	"deletePosition": `DELETE FROM enumeration_position WHERE scope = ? AND asset_id = ?`,

	"selectScopes": `SELECT scope FROM enumeration_count WHERE total <> 0
		UNION SELECT scope FROM enumeration_slot
		UNION SELECT scope FROM enumeration_position`,
}
