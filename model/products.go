package model

import "time"

// ProductState defines the lifecycle stages of a product. States are numeric
// and strictly ordered; each state is reachable only from its immediate
// predecessor.
type ProductState int

const (
	StateHarvested ProductState = iota // Product registered by farmer
	StateProcessed                     // Product processed by farmer
	StatePacked                        // Product packed by farmer
	StateForSale                       // Product listed for sale with a price
	StateSold                          // Product bought by distributor
	StateShipped                       // Product shipped by distributor
	StateReceived                      // Product received by retailer
)

var stateNames = map[ProductState]string{
	StateHarvested: "HARVESTED",
	StateProcessed: "PROCESSED",
	StatePacked:    "PACKED",
	StateForSale:   "FOR_SALE",
	StateSold:      "SOLD",
	StateShipped:   "SHIPPED",
	StateReceived:  "RECEIVED",
}

func (s ProductState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Product is the central data structure for tracking an item through the
// supply chain. Provenance metadata is set at harvest and never mutated;
// only State, CurrentHolder and Price change afterwards, each through a
// single authorized transition.
type Product struct {
	ObjectType      string       `json:"objectType"` // "Product"
	ID              uint64       `json:"id"`         // Sequential, 1-based, never reused
	Name            string       `json:"name"`
	FarmName        string       `json:"farmName"`
	FarmDescription string       `json:"farmDescription"`
	Latitude        string       `json:"latitude"`
	Longitude       string       `json:"longitude"`
	FarmerID        string       `json:"farmerId"`      // Identity that harvested the product
	CurrentHolder   string       `json:"currentHolder"` // Identity in custody of the product
	Price           uint64       `json:"price"`         // Smallest currency unit; 0 until listed for sale
	State           ProductState `json:"state"`
	CreatedAt       time.Time    `json:"createdAt"`
	LastUpdatedAt   time.Time    `json:"lastUpdatedAt"`
}

// TransitionRecord is one entry of the append-only event log. Sequence is
// strictly increasing and total-ordered across the whole ledger, giving a
// global happens-before order for auditing.
type TransitionRecord struct {
	ObjectType string       `json:"objectType"` // "Transition"
	Sequence   uint64       `json:"sequence"`
	ProductID  uint64       `json:"productId"`
	FromState  ProductState `json:"fromState"`
	ToState    ProductState `json:"toState"`
	Actor      string       `json:"actor"`
	TxID       string       `json:"txId"`
	Timestamp  time.Time    `json:"timestamp"`
}

// ProductTrace bundles a product snapshot with its full provenance trace.
type ProductTrace struct {
	Product *Product           `json:"product"`
	History []TransitionRecord `json:"history"`
}
