package migrations

import _ "embed"

//go:embed 000001_initial_schema.up.sql
var InitialSchemaUp string

//go:embed 000001_initial_schema.down.sql
var InitialSchemaDown string

//go:embed 000002_dispatch_indexes.up.sql
var DispatchIndexesUp string

//go:embed 000002_dispatch_indexes.down.sql
var DispatchIndexesDown string
