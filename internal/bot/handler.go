// Package bot implements the chat conversation that onboards customers and
// hands them off to the ordering web app.
package bot

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/AlazarG19/Test-Bulk-Buddy/internal/orders"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/pools"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/sessions"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
)

const defaultMaxNameLen = 120

type poolRegistry interface {
	ListOpenPools(ctx context.Context) []pools.Pool
	CreatePool(ctx context.Context, creator string) (*pools.Pool, error)
}

type orderHistory interface {
	GetOrdersForCustomer(ctx context.Context, customer string) ([]orders.OrderView, error)
}

// HandlerParams wire the conversation handler.
type HandlerParams struct {
	Sessions   sessions.Store
	Pools      poolRegistry
	Orders     orderHistory
	Logger     *logger.Logger
	WebAppURL  string
	MaxNameLen int
}

// Handler turns updates into replies. It holds no per-chat state of its own;
// everything lives in the session store.
type Handler struct {
	sessions   sessions.Store
	pools      poolRegistry
	orders     orderHistory
	logg       *logger.Logger
	webApp     *url.URL
	maxNameLen int
}

// NewHandler validates params and builds a Handler.
func NewHandler(params HandlerParams) (*Handler, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Pools == nil {
		return nil, fmt.Errorf("pool registry required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order history required")
	}
	webApp, err := url.Parse(strings.TrimSpace(params.WebAppURL))
	if err != nil || webApp.Scheme == "" || webApp.Host == "" {
		return nil, fmt.Errorf("web app url must be absolute: %q", params.WebAppURL)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	maxName := params.MaxNameLen
	if maxName <= 0 {
		maxName = defaultMaxNameLen
	}
	return &Handler{
		sessions:   params.Sessions,
		pools:      params.Pools,
		orders:     params.Orders,
		logg:       logg,
		webApp:     webApp,
		maxNameLen: maxName,
	}, nil
}

// Handle advances the conversation for one update. An error means the
// session store failed; conversation problems are answered with a reply.
func (h *Handler) Handle(ctx context.Context, upd Update) ([]Reply, error) {
	ctx = h.logg.WithChatID(ctx, upd.ChatID)
	session, err := h.sessions.Load(ctx, upd.ChatID)
	if err != nil {
		return nil, err
	}

	switch {
	case upd.Callback != "":
		return h.handleCallback(ctx, session, upd)
	case upd.Contact != nil:
		return h.handleContact(ctx, session, upd)
	}

	text := strings.TrimSpace(upd.Text)
	if text == "" {
		return nil, nil
	}
	if text == cmdStart || text == btnBackToStart {
		return h.start(ctx, session, upd)
	}
	if session != nil && session.Step == sessions.StepAwaitName {
		return h.handleName(ctx, session, text)
	}
	if !session.Ready() {
		return h.start(ctx, session, upd)
	}
	return h.handleMenu(ctx, session, upd, text)
}

func (h *Handler) start(ctx context.Context, session *sessions.Session, upd Update) ([]Reply, error) {
	if session.Ready() {
		return []Reply{{Text: "Welcome back! What would you like to do?", Keyboard: mainMenu()}}, nil
	}
	if session == nil {
		session = &sessions.Session{ChatID: upd.ChatID, UserID: upd.UserID, Username: upd.Username}
	}
	session.Step = sessions.StepAwaitContact
	if err := h.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return []Reply{{
		Text:     "Welcome! Let's create your account. Please share your phone number using the button below.",
		Keyboard: contactMenu(btnBackToStart),
	}}, nil
}

func (h *Handler) handleContact(ctx context.Context, session *sessions.Session, upd Update) ([]Reply, error) {
	if upd.Contact.UserID != 0 && upd.UserID != 0 && upd.Contact.UserID != upd.UserID {
		return []Reply{{Text: "Please share your own phone number using the button below.", Keyboard: contactMenu(btnBackToStart)}}, nil
	}
	if session == nil {
		session = &sessions.Session{ChatID: upd.ChatID}
	}
	if upd.UserID != 0 {
		session.UserID = upd.UserID
	}
	if upd.Username != "" {
		session.Username = upd.Username
	}
	session.Phone = strings.TrimSpace(upd.Contact.Phone)
	session.Name = ""
	session.Step = sessions.StepAwaitName
	if err := h.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return []Reply{{Text: "Great! Now please send me your full name.", RemoveKeyboard: true}}, nil
}

func (h *Handler) handleName(ctx context.Context, session *sessions.Session, name string) ([]Reply, error) {
	if len(name) > h.maxNameLen || strings.HasPrefix(name, "/") {
		return []Reply{{Text: fmt.Sprintf("Please send your full name (at most %d characters).", h.maxNameLen)}}, nil
	}
	session.Name = name
	session.Step = sessions.StepReady
	if err := h.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	h.logg.Info(ctx, "bot.account_created")
	return []Reply{{
		Text:     fmt.Sprintf("Account created successfully!\nName: %s\nPhone: %s\n\nWhat would you like to do?", session.Name, session.Phone),
		Keyboard: mainMenu(),
	}}, nil
}

func (h *Handler) handleMenu(ctx context.Context, session *sessions.Session, upd Update, text string) ([]Reply, error) {
	switch text {
	case btnBackToMain:
		return []Reply{{Text: "Returning to main menu...", Keyboard: mainMenu()}}, nil
	case btnMakeOrder, btnBackToType:
		return []Reply{{Text: "Choose order type:", Keyboard: orderTypeMenu()}}, nil
	case btnSingleOrder:
		return []Reply{h.webAppReply(session, upd, "Opening web app for single order...", "", btnBackToType, callbackBackToType)}, nil
	case btnPoolOrder, btnBackToPools:
		return []Reply{h.poolMenu(ctx)}, nil
	case btnRequestPool:
		return h.requestPool(ctx, session, upd), nil
	case btnViewOrders:
		return h.viewOrders(ctx, session, upd), nil
	case btnUpdateAccount:
		return []Reply{{
			Text:     "Please share your phone number again to update your account.",
			Keyboard: contactMenu(btnBackToMain),
		}}, nil
	}

	if poolID, ok := strings.CutPrefix(text, poolButtonPrefix); ok && poolID != "" {
		return h.choosePool(ctx, session, upd, poolID), nil
	}
	return []Reply{{Text: "Sorry, I didn't understand that. Please choose an option below.", Keyboard: mainMenu()}}, nil
}

func (h *Handler) handleCallback(ctx context.Context, session *sessions.Session, upd Update) ([]Reply, error) {
	if !session.Ready() {
		return h.start(ctx, session, upd)
	}
	switch upd.Callback {
	case callbackBackToType:
		return []Reply{{Text: "Choose order type:", Keyboard: orderTypeMenu()}}, nil
	case callbackBackToPools:
		return []Reply{h.poolMenu(ctx)}, nil
	default:
		return nil, nil
	}
}

func (h *Handler) poolMenu(ctx context.Context) Reply {
	open := h.pools.ListOpenPools(ctx)
	keyboard := make([][]Button, 0, len(open)/poolButtonsPerRow+3)
	row := []Button{}
	for _, pool := range open {
		row = append(row, Button{Text: poolButtonPrefix + pool.PoolID})
		if len(row) == poolButtonsPerRow {
			keyboard = append(keyboard, row)
			row = []Button{}
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	keyboard = append(keyboard,
		[]Button{{Text: btnRequestPool}},
		[]Button{{Text: btnBackToType}, {Text: btnBackToMain}},
	)

	text := "Select your pool:"
	if len(open) == 0 {
		text = "There are no open pools right now. You can request a new one."
	}
	return Reply{Text: text, Keyboard: keyboard}
}

func (h *Handler) choosePool(ctx context.Context, session *sessions.Session, upd Update, poolID string) []Reply {
	for _, pool := range h.pools.ListOpenPools(ctx) {
		if pool.PoolID == poolID {
			return []Reply{h.webAppReply(session, upd, fmt.Sprintf("Opening web app for Pool %s...", poolID), poolID, btnBackToPools, callbackBackToPools)}
		}
	}
	reply := h.poolMenu(ctx)
	reply.Text = "That pool is no longer open. " + reply.Text
	return []Reply{reply}
}

func (h *Handler) requestPool(ctx context.Context, session *sessions.Session, upd Update) []Reply {
	pool, err := h.pools.CreatePool(ctx, customerIdentity(session, upd))
	if err != nil {
		h.logg.Error(ctx, "bot.pool_request_failed", err)
		return []Reply{{Text: "Could not create a pool right now. Please try again later.", Keyboard: orderTypeMenu()}}
	}
	h.logg.Info(h.logg.WithField(ctx, "pool_id", pool.PoolID), "bot.pool_requested")
	return []Reply{h.webAppReply(session, upd, fmt.Sprintf("Pool %s created. Opening web app...", pool.PoolID), pool.PoolID, btnBackToPools, callbackBackToPools)}
}

func (h *Handler) viewOrders(ctx context.Context, session *sessions.Session, upd Update) []Reply {
	views, err := h.orders.GetOrdersForCustomer(ctx, customerIdentity(session, upd))
	if err != nil {
		h.logg.Error(ctx, "bot.view_orders_failed", err)
		return []Reply{{Text: "Could not load your orders right now. Please try again later.", Keyboard: mainMenu()}}
	}
	messages := renderOrders(views)
	replies := make([]Reply, len(messages))
	for i, msg := range messages {
		replies[i] = Reply{Text: msg}
	}
	replies[len(replies)-1].Keyboard = mainMenu()
	return replies
}

func (h *Handler) webAppReply(session *sessions.Session, upd Update, text, poolID, backText, backData string) Reply {
	link := *h.webApp
	query := link.Query()
	userID := session.UserID
	if userID == 0 {
		userID = upd.UserID
	}
	if poolID == "" {
		query.Set("orderType", "single")
	} else {
		query.Set("orderType", "pool")
		query.Set("poolNumber", poolID)
	}
	query.Set("userId", strconv.FormatInt(userID, 10))
	if identity := customerIdentity(session, upd); identity != "" {
		query.Set("username", identity)
	}
	link.RawQuery = query.Encode()

	return Reply{
		Text: text,
		Inline: [][]Button{
			{{Text: btnOpenWebApp, URL: link.String()}},
			{{Text: backText, Data: backData}},
		},
	}
}

// customerIdentity is the string orders and pools are stored under: the chat
// username the web app receives, or the account name when there is none.
func customerIdentity(session *sessions.Session, upd Update) string {
	switch {
	case session != nil && session.Username != "":
		return session.Username
	case upd.Username != "":
		return upd.Username
	case session != nil:
		return session.Name
	}
	return ""
}
