package database

// ColumnInfo describes a single column in a table, or an inferred field of a
// document collection.
type ColumnInfo struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"` // engine-native label, not normalised
	IsNullable   bool   `json:"is_nullable"`
	IsPrimaryKey bool   `json:"is_primary_key"`
}

// TableInfo describes a table (or collection) and its columns in catalog order.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// Schema is the full introspected database. It is built fresh on every call.
type Schema struct {
	Tables []TableInfo `json:"tables"`
}

// QueryResult is a fully buffered result set.
//
// Columns may contain duplicates (joins); rows are aligned positionally with
// Columns and RowCount always equals len(Rows).
type QueryResult struct {
	Columns  []string  `json:"columns"`
	Rows     [][]Value `json:"rows"`
	RowCount int       `json:"row_count"`
}

// EmptyResult is the zero-row result. Column names are not recoverable
// without at least one row, so Columns is empty too.
func EmptyResult() *QueryResult {
	return &QueryResult{Columns: []string{}, Rows: [][]Value{}}
}

// NewResult builds a result from columns and rows, fixing RowCount.
func NewResult(columns []string, rows [][]Value) *QueryResult {
	if len(rows) == 0 {
		return EmptyResult()
	}
	return &QueryResult{Columns: columns, Rows: rows, RowCount: len(rows)}
}
