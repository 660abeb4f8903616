package migrate

import "embed"

//go:embed sql/migrations/*.sql sql/seeds/*.sql
var embedded embed.FS
