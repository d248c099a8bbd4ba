package main

import (
	"context"
	"tweetexport-backend/cmd/tweetexport-cli/commands"
	"tweetexport-backend/internal/components/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	commands.ExecuteContext(context.Background())
}
