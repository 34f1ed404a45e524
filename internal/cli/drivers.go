package cli

import (
	_ "github.com/soothsayer-db/soothsayer/database/oracle"
	_ "github.com/soothsayer-db/soothsayer/database/postgres"
	_ "github.com/soothsayer-db/soothsayer/database/sqlite"
)
