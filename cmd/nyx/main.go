// Package main is the entry point for the Nyx chat gateway.
//
//	@title			Nyx Chat Gateway API
//	@version		1.0
//	@description	多租户对话网关：流式 LLM 回复、知识库检索增强、文档入库与网页抓取
//
//	@contact.name	Nyx Team
//	@contact.url	https://github.com/kart-io/nyx
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host			localhost:8080
//	@BasePath		/
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/nyx/cmd/nyx/app"
)

func main() {
	app.NewApp().Run()
}
