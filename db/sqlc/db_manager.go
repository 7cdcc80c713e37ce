package sqlc

import (
	"net"
	"time"
)

const (
	QuerierCtxTimeout = time.Second * 10
)

type DbManager struct {
	Analytics *AnalyticsManager
	Sessions  *SessionStore
}

func NewDbManager(queries Querier, serverIpNet net.IPNet) DbManager {
	return DbManager{
		Analytics: NewAnalyticsManager(queries, serverIpNet),
		Sessions:  NewSessionStore(queries),
	}
}
