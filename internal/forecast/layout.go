package forecast

// layout.go declares the template's fixed cell coordinates as data. The
// generator applies these maps generically instead of hard-coding one
// statement per cell, so the layout can be reviewed (and changed) in one
// place.

// templateSheet is the sheet every coordinate below lives on.
const templateSheet = "Custo"

// Number formats used by the document's locale.
const (
	fmtRate     = "#,##0.0000"
	fmtInteger  = "#,##0"
	fmtDecimal2 = "#,##0.00"
	fmtPercent  = "0.00%"
	fmtDate     = "dd/mm/yyyy"
)

// Header cells written once from the first record of a process.
const (
	cellGenerationDate = "D7"
	cellProcess        = "D8"
	cellInvoice        = "D9"
	cellSupplier       = "D10"
	cellIncoterm       = "D11"
	cellModal          = "D12"
	cellDestination    = "D13"
	cellCurrency       = "D14"
	cellRequester      = "D15"
	cellForwarder      = "D16"
	cellDescription    = "B19"
	cellAvailability   = "H7"
	cellRateValue      = "G13"
	cellRateDate       = "H13"
)

// headerField maps a record field to its header cell. Translated fields go
// through the code map before being written.
type headerField struct {
	key       string
	cell      string
	translate bool
}

// headerFields are the plain-text header cells, in template order.
var headerFields = []headerField{
	{key: "Process", cell: cellProcess},
	{key: "Invoice", cell: cellInvoice},
	{key: "Supplier", cell: cellSupplier, translate: true},
	{key: "Incoterm", cell: cellIncoterm},
	{key: "Modal", cell: cellModal},
	{key: "Destination", cell: cellDestination, translate: true},
	{key: "Currency", cell: cellCurrency, translate: true},
	{key: "Requester", cell: cellRequester},
	{key: "Forwarding Agent", cell: cellForwarder},
	{key: "Description", cell: cellDescription},
}

// availabilityField is the header date field written as a date serial.
const availabilityField = "Requested Time of Availability"

// itemStartRow is the first row of the repeating item table.
const itemStartRow = 25

// cellKind selects the coercion and number format for an item cell.
type cellKind int

const (
	kindText cellKind = iota
	kindInteger
	kindDecimal2
	kindPercent
)

// itemColumn maps a record field to its column in the item table.
type itemColumn struct {
	key  string
	col  string
	kind cellKind
}

// itemColumns are the repeating table's columns, one entry per written cell.
var itemColumns = []itemColumn{
	{key: "Product Code", col: "C", kind: kindText},
	{key: "Description", col: "D", kind: kindText},
	{key: "Derivation", col: "F", kind: kindText},
	{key: "Quantity Real", col: "G", kind: kindInteger},
	{key: "Price", col: "H", kind: kindDecimal2},
	{key: "Net Weight", col: "L", kind: kindDecimal2},
	{key: "NCM", col: "N", kind: kindText},
	{key: "II Value", col: "O", kind: kindPercent},
	{key: "PIS Value", col: "P", kind: kindPercent},
	{key: "COFINS Value", col: "Q", kind: kindPercent},
	{key: "IPI Value", col: "R", kind: kindPercent},
}
