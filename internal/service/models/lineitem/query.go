package lineitem

// QueryLineItemsModel represents filter parameters for querying line items.
type QueryLineItemsModel struct {
	Ids      []string `json:"ids,omitempty"`
	OrderIds []int64  `json:"orderIds,omitempty"`
}
