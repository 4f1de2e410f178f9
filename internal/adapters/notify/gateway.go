package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

const (
	gatewayHandshakeTimeout = 10 * time.Second
	gatewayWriteTimeout     = 5 * time.Second
	gatewayTokenTTL         = time.Hour
)

// GatewayNotifier pushes events over a WebSocket to the presentation
// gateway. Authentication is an HS256 bearer token minted from the shared
// secret. A broken connection is redialed on the next event; events that
// cannot be written are dropped with a warning.
type GatewayNotifier struct {
	url    string
	secret []byte
	log    *logrus.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewGatewayNotifier(url, secret string, log *logrus.Logger) *GatewayNotifier {
	return &GatewayNotifier{url: url, secret: []byte(secret), log: log}
}

func (n *GatewayNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	if n.conn == nil {
		return nil
	}
	n.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := n.conn.Close()
	n.conn = nil
	return err
}

func (n *GatewayNotifier) Stage(ctx context.Context, discordUserID string, stage domain.Stage, detail string) {
	n.send(ctx, stageEvent(discordUserID, stage, detail))
}

func (n *GatewayNotifier) TradeExecuted(ctx context.Context, rec *domain.TradeRecord) {
	n.send(ctx, executedEvent(rec))
}

func (n *GatewayNotifier) PnLComputed(ctx context.Context, rec *domain.TradeRecord, report *domain.PnLReport) {
	n.send(ctx, pnlEventFor(rec, report))
}

func (n *GatewayNotifier) send(ctx context.Context, ev event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}

	if n.conn == nil {
		if err := n.dial(ctx); err != nil {
			n.log.WithError(err).Warn("gateway dial failed, dropping event")
			return
		}
	}

	n.conn.SetWriteDeadline(time.Now().Add(gatewayWriteTimeout))
	if err := n.conn.WriteJSON(ev); err == nil {
		return
	}

	// Stale connection. Redial once and retry the same event.
	n.conn.Close()
	n.conn = nil
	if err := n.dial(ctx); err != nil {
		n.log.WithError(err).Warn("gateway redial failed, dropping event")
		return
	}
	n.conn.SetWriteDeadline(time.Now().Add(gatewayWriteTimeout))
	if err := n.conn.WriteJSON(ev); err != nil {
		n.log.WithError(err).WithField("kind", ev.Kind).Warn("failed to push event to gateway")
		n.conn.Close()
		n.conn = nil
	}
}

func (n *GatewayNotifier) dial(ctx context.Context) error {
	token, err := n.mintToken()
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{HandshakeTimeout: gatewayHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, n.url, header)
	if err != nil {
		return err
	}
	n.conn = conn
	return nil
}

func (n *GatewayNotifier) mintToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "trade-core",
		"iat": now.Unix(),
		"exp": now.Add(gatewayTokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(n.secret)
}
