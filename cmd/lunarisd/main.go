// Command lunarisd is the Lunaris TCP server: it accepts connections,
// reads length-prefixed JSON request frames, and writes back response
// frames produced by the database facade (spec.md §6).
package main

import (
	"errors"
	"flag"
	"log"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/aalyth/lunaris-go/internal/dberr"
	"github.com/aalyth/lunaris-go/internal/lunarisdb"
	"github.com/aalyth/lunaris-go/internal/protocol"
)

const defaultAddr = "127.0.0.1:7435"

var (
	flagAddr    = flag.String("addr", "", "listen address (default "+defaultAddr+", or $LUNARIS_ADDR)")
	flagDataDir = flag.String("data-dir", "", "data directory (default $LUNARIS_DATA_DIR or $HOME/.lunaris)")
)

func resolveAddr() string {
	if *flagAddr != "" {
		return *flagAddr
	}
	if v := os.Getenv("LUNARIS_ADDR"); v != "" {
		return v
	}
	return defaultAddr
}

func resolveDataDir() string {
	if *flagDataDir != "" {
		return *flagDataDir
	}
	if v := os.Getenv("LUNARIS_DATA_DIR"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lunaris"
	}
	return filepath.Join(home, ".lunaris")
}

func main() {
	flag.Parse()

	dataDir := resolveDataDir()
	db, err := lunarisdb.Open(dataDir)
	if err != nil {
		log.Fatalf("failed to open database at %s: %v", dataDir, err)
	}

	addr := resolveAddr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("bind failed on %s: %v", addr, err)
		os.Exit(1)
	}
	log.Printf("lunarisd listening on %s (data dir %s)", addr, dataDir)

	for {
		conn, err := lis.Accept()
		if err != nil {
			log.Printf("accept error: %v", err)
			continue
		}
		go handleConn(db, conn)
	}
}

func handleConn(db *lunarisdb.Database, conn net.Conn) {
	connID := uuid.NewString()[:8]
	defer conn.Close()
	log.Printf("[%s] connected: %s", connID, conn.RemoteAddr())

	for {
		var req protocol.Request
		ok, err := protocol.RecvMessage(conn, &req)
		if err != nil {
			log.Printf("[%s] read error: %v", connID, err)
			return
		}
		if !ok {
			log.Printf("[%s] disconnected", connID)
			return
		}

		resp := execute(db, req.SQL)
		if err := protocol.SendMessage(conn, resp); err != nil {
			log.Printf("[%s] write error: %v", connID, err)
			return
		}
	}
}

func execute(db *lunarisdb.Database, sql string) protocol.Response {
	result, err := db.ExecuteSQL(sql)
	if err != nil {
		var lerr *dberr.Error
		if errors.As(err, &lerr) {
			return protocol.ErrResponse(lerr.Error())
		}
		return protocol.ErrResponse(err.Error())
	}

	var rs *protocol.ResultSet
	if len(result.Columns) > 0 {
		rs = &protocol.ResultSet{Columns: result.Columns, Rows: result.Rows}
	}
	return protocol.OkResponse(result.Message, rs)
}
