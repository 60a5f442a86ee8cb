package main

import (
	"log"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/research-orbits/backend-go/app/bootstrap"
	"github.com/research-orbits/backend-go/app/router"
	"github.com/research-orbits/backend-go/internal/config"
	"github.com/research-orbits/backend-go/internal/logger"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	router.Init()

	// 配置Beego全局设置
	web.BConfig.AppName = "Research Orbits Backend"
	web.BConfig.CopyRequestBody = true

	if p, err := strconv.Atoi(config.GetAppConfig().Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = p
	}

	logger.Info("🚀 Starting Research Orbits Backend", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
