package opssdk

type PurchaseOrderStatus string

const (
	PODraft     PurchaseOrderStatus = "DRAFT"
	POOrdered   PurchaseOrderStatus = "ORDERED"
	POReceived  PurchaseOrderStatus = "RECEIVED"
	POCancelled PurchaseOrderStatus = "CANCELLED"
)

var purchaseOrderStatuses = []PurchaseOrderStatus{PODraft, POOrdered, POReceived, POCancelled}

type PurchaseOrder struct {
	ID           ID                  `json:"id"`
	CompanyID    ID                  `json:"companyId,omitempty"`
	PONumber     string              `json:"poNumber,omitempty"`
	SupplierID   ID                  `json:"supplierId,omitempty"`
	Supplier     string              `json:"supplier,omitempty"`
	Amount       float64             `json:"amount"`
	OrderDate    string              `json:"orderDate,omitempty"`
	DeliveryDate string              `json:"deliveryDate,omitempty"`
	Status       PurchaseOrderStatus `json:"status,omitempty"`
	Notes        string              `json:"notes,omitempty"`
}

func (p PurchaseOrder) Validate() error {
	if err := requireEntity("purchase order", p.ID); err != nil {
		return err
	}
	return checkStatus("purchase order", p.Status, purchaseOrderStatuses...)
}

type PurchaseOrderInput struct {
	SupplierID   ID                  `json:"supplierId,omitempty"`
	Supplier     string              `json:"supplier,omitempty"`
	Amount       float64             `json:"amount,omitempty"`
	OrderDate    string              `json:"orderDate,omitempty"`
	DeliveryDate string              `json:"deliveryDate,omitempty"`
	Status       PurchaseOrderStatus `json:"status,omitempty"`
	Notes        string              `json:"notes,omitempty"`
}

func (in PurchaseOrderInput) Validate() error {
	errs := fieldErrors{}
	if in.SupplierID.IsZero() && in.Supplier == "" {
		errs["supplier"] = requiredReason
	}
	errs.positive("amount", in.Amount)
	errs.date("orderDate", in.OrderDate)
	errs.date("deliveryDate", in.DeliveryDate)
	errs.dateOrder("orderDate", in.OrderDate, "deliveryDate", in.DeliveryDate)
	errs.oneOf("status", string(in.Status), statusStrings(purchaseOrderStatuses)...)
	return errs.err()
}

type Supplier struct {
	ID        ID     `json:"id"`
	CompanyID ID     `json:"companyId,omitempty"`
	Name      string `json:"name"`
	Contact   string `json:"contact,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

func (s Supplier) Validate() error { return requireEntity("supplier", s.ID) }

type SupplierInput struct {
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

func (in SupplierInput) Validate() error {
	errs := fieldErrors{}
	errs.required("name", in.Name)
	errs.email("email", in.Email)
	return errs.err()
}

type InventoryItem struct {
	ID                ID     `json:"id"`
	CompanyID         ID     `json:"companyId,omitempty"`
	Name              string `json:"name"`
	SKU               string `json:"sku,omitempty"`
	Quantity          int    `json:"quantity"`
	Location          string `json:"location,omitempty"`
	LowStockThreshold int    `json:"lowStockThreshold,omitempty"`
	ExpiryDate        string `json:"expiryDate,omitempty"`
	BatchNo           string `json:"batchNo,omitempty"`
	LotNo             string `json:"lotNo,omitempty"`
	QRCode            string `json:"qrCode,omitempty"`
	Barcode           string `json:"barcode,omitempty"`
	AssetType         string `json:"assetType,omitempty"`
	MovementLog       string `json:"movementLog,omitempty"`
	SupplierID        ID     `json:"supplierId,omitempty"`
}

func (i InventoryItem) Validate() error { return requireEntity("inventory item", i.ID) }

// LowStock reports whether the quantity is at or below the threshold.
func (i InventoryItem) LowStock() bool {
	return i.LowStockThreshold > 0 && i.Quantity <= i.LowStockThreshold
}

type InventoryItemInput struct {
	Name              string `json:"name,omitempty"`
	SKU               string `json:"sku,omitempty"`
	Quantity          int    `json:"quantity,omitempty"`
	Location          string `json:"location,omitempty"`
	LowStockThreshold int    `json:"lowStockThreshold,omitempty"`
	ExpiryDate        string `json:"expiryDate,omitempty"`
	BatchNo           string `json:"batchNo,omitempty"`
	LotNo             string `json:"lotNo,omitempty"`
	QRCode            string `json:"qrCode,omitempty"`
	Barcode           string `json:"barcode,omitempty"`
	AssetType         string `json:"assetType,omitempty"`
	SupplierID        ID     `json:"supplierId,omitempty"`
}

func (in InventoryItemInput) Validate() error {
	errs := fieldErrors{}
	errs.required("name", in.Name)
	errs.nonNegative("quantity", float64(in.Quantity))
	errs.nonNegative("lowStockThreshold", float64(in.LowStockThreshold))
	errs.date("expiryDate", in.ExpiryDate)
	return errs.err()
}

type (
	PurchaseOrders = Resource[PurchaseOrder, PurchaseOrderInput]
	Suppliers      = Resource[Supplier, SupplierInput]
	InventoryItems = Resource[InventoryItem, InventoryItemInput]
)
