package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           RebelOdds Paper Trading API
// @version         0.1.0
// @description     Paper-money prediction market: contracts, trades, portfolios and resolution.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
