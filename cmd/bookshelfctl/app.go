package main

import (
	"encoding/json"
	"io"

	appimport "github.com/xiebiao/bookshelf/internal/application/bookimport"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookshelf/pkg/jwt"
)

// app 子命令使用的依赖
type app struct {
	Import    *appimport.ImportBooksUseCase
	Status    *appimport.GetImportStatusUseCase
	Export    *appimport.ExportBooksUseCase
	JWT       *jwt.Manager
	Blacklist *redis.TokenBlacklist // 未启用Redis时为nil
}

// newApp 测试中替换，用于注入内存库
var newApp = initializeApp

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
