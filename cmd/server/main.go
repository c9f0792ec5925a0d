package main

import (
	"github.com/opsdeck/opsdeck/internal/server"
)

func main() {
	s := server.New()
	s.Start(s.Cfg.AppAddr)
}
