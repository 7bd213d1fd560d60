package domain

const LedgerTopic = "ledger"

type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeAssetCreated
	EventTypePriceSet
	EventTypeAssetTransferred
	EventTypeAssetBought
)

func (t EventType) String() string {
	return []string{
		"Unknown",
		"AssetCreated",
		"PriceSet",
		"AssetTransferred",
		"AssetBought",
	}[t]
}

type Event interface {
	GetType() EventType
	GetAssetId() Hash
}

type AssetCreated struct {
	Owner string `json:"owner"`
	Id    Hash   `json:"id"`
}

func (e AssetCreated) GetType() EventType { return EventTypeAssetCreated }
func (e AssetCreated) GetAssetId() Hash   { return e.Id }

type PriceSet struct {
	Owner string `json:"owner"`
	Id    Hash   `json:"id"`
	Price uint64 `json:"price"`
}

func (e PriceSet) GetType() EventType { return EventTypePriceSet }
func (e PriceSet) GetAssetId() Hash   { return e.Id }

type AssetTransferred struct {
	From string `json:"from"`
	To   string `json:"to"`
	Id   Hash   `json:"id"`
}

func (e AssetTransferred) GetType() EventType { return EventTypeAssetTransferred }
func (e AssetTransferred) GetAssetId() Hash   { return e.Id }

type AssetBought struct {
	Buyer  string `json:"buyer"`
	Seller string `json:"seller"`
	Id     Hash   `json:"id"`
	Price  uint64 `json:"price"`
}

func (e AssetBought) GetType() EventType { return EventTypeAssetBought }
func (e AssetBought) GetAssetId() Hash   { return e.Id }
