package main

import (
	"embed"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"tonetrace/internal/log"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	log.Setup(os.Getenv("TONETRACE_LOG_LEVEL"))

	app := NewApp()

	err := wails.Run(&options.App{
		Title:  "tonetrace",
		Width:  960,
		Height: 680,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup: app.startup,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.L().Error("application exited", "error", err)
		os.Exit(1)
	}
}
