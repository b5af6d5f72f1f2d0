package main

import (
	"fmt"
	"os"
	"time"

	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/database"
	"portfoliotracker/src/server"
	"portfoliotracker/src/utils"
)

var APP_NAME = os.Getenv("APP_NAME")

func main() {
	config := database.GetConfig()
	utils.SetupLogger(config.LogLevel, config.LogFormat)
	defer handlePanic()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	if err := database.InitRedis(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to redis")
	}
	defer database.CloseRedis()

	if err := server.StartServer(server.GetConfig()); err != nil {
		logger.WithError(err).Error("Server stopped with error")
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
		//nolint
		time.Sleep(time.Second * 5)
	}
}
