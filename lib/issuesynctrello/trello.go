package issuesynctrello

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/crfeliz/issue-trello-sync/cfg"
	"github.com/crfeliz/issue-trello-sync/lib/models"
	"github.com/crfeliz/issue-trello-sync/lib/utils"
	"github.com/google/go-querystring/query"
	"github.com/sirupsen/logrus"
)

// DefaultLabelColor is used for labels created on the board.
const DefaultLabelColor = "pink"

// DefaultChecklistName names the checklist created on each card.
const DefaultChecklistName = "Checklist"

// Client is the subset of the Trello API the sync needs. It allows us to
// swap in a dry-run client, or fakes for testing.
type Client interface {
	GetBoard(ctx context.Context, boardID string) (*models.Board, error)
	CreateList(ctx context.Context, list models.NewList) (models.List, error)
	CreateLabel(ctx context.Context, label models.NewLabel) (models.Label, error)
	UpdateLabel(ctx context.Context, labelID string, name string) (models.Label, error)
	CreateCard(ctx context.Context, card models.CardFields) (models.Card, error)
	UpdateCard(ctx context.Context, cardID string, update models.CardUpdate) (models.Card, error)
	CreateChecklist(ctx context.Context, checklist models.NewChecklist) (models.Checklist, error)
	DeleteChecklist(ctx context.Context, checklistID string) error
	CreateCheckItem(ctx context.Context, checklistID string, item models.NewCheckItem) (models.CheckItem, error)
	UpdateCheckItem(ctx context.Context, cardID string, checkItemID string, complete bool) (models.CheckItem, error)
	DeleteCheckItem(ctx context.Context, checklistID string, checkItemID string) error
}

// realTrelloClient makes all of the requests against the Trello REST API.
// It is the canonical implementation of Client.
type realTrelloClient struct {
	baseURL string
	key     string
	token   string
	timeout time.Duration
	client  *http.Client
	log     *logrus.Entry
}

// dryrunTrelloClient reads the board like realTrelloClient, but only logs
// the writes it is asked to make. It returns made-up entities so that the
// rest of the run can carry on as if the writes had happened.
type dryrunTrelloClient struct {
	realTrelloClient
	nextID *int
}

// do sends one request. The credentials are added to the query string of
// every call; they are never part of the endpoint reported in errors.
func (t realTrelloClient) do(ctx context.Context, method string, path string, params url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s %s", method, path)

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("key", t.key)
	q.Set("token", t.token)

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s?%s", t.baseURL, path, q.Encode()), nil)
	if err != nil {
		return &models.RemoteAPIError{Service: "trello", Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	res, err := t.client.Do(req)
	if err != nil {
		return &models.RemoteAPIError{Service: "trello", Endpoint: endpoint, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return &models.RemoteAPIError{Service: "trello", Endpoint: endpoint, StatusCode: res.StatusCode, Err: err}
	}

	if res.StatusCode >= http.StatusBadRequest {
		t.log.Debugf("Error body: %s", body)
		return &models.RemoteAPIError{Service: "trello", Endpoint: endpoint, StatusCode: res.StatusCode, Body: string(body)}
	}

	if msg := errorMessage(body); msg != "" {
		return &models.RemoteAPIError{Service: "trello", Endpoint: endpoint, StatusCode: res.StatusCode, Body: string(body), Err: errors.New(msg)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &models.RemoteAPIError{
			Service:    "trello",
			Endpoint:   endpoint,
			StatusCode: res.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("malformed response: %w", err),
		}
	}
	return nil
}

// errorMessage returns the message of an error-shaped JSON object.
func errorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return ""
	}
	var shape struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal([]byte(trimmed), &shape); err != nil || shape.Message == nil {
		return ""
	}
	if *shape.Message == "" {
		return "unknown error"
	}
	return *shape.Message
}

// get performs a read, retrying server-side failures until the configured
// timeout or until ctx is done.
func (t realTrelloClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	_, err := utils.Retry(t.log, t.timeout, func() (struct{}, error) {
		err := t.do(ctx, http.MethodGet, path, params, out)
		var remote *models.RemoteAPIError
		if errors.As(err, &remote) && remote.StatusCode >= http.StatusBadRequest && remote.StatusCode < http.StatusInternalServerError {
			return struct{}{}, backoff.Permanent(err)
		}
		if err != nil && ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	})
	return err
}

func encode(v interface{}) url.Values {
	values, err := query.Values(v)
	if err != nil {
		// only struct values are ever passed
		panic(err)
	}
	return values
}

func (t realTrelloClient) GetBoard(ctx context.Context, boardID string) (*models.Board, error) {
	base := fmt.Sprintf("/boards/%s", url.PathEscape(boardID))
	board := &models.Board{}

	reads := []struct {
		path   string
		params url.Values
		out    interface{}
	}{
		{base, url.Values{"fields": {"id,name,url"}}, &board.Board},
		{base + "/labels", url.Values{"limit": {"1000"}}, &board.Labels},
		{base + "/lists", nil, &board.Lists},
		{base + "/cards", nil, &board.Cards},
		{base + "/members", nil, &board.Members},
		{base + "/checklists", nil, &board.Checklists},
	}
	for _, r := range reads {
		if err := t.get(ctx, r.path, r.params, r.out); err != nil {
			t.log.Errorf("Error retrieving Trello board %s: %v", boardID, err)
			return nil, err
		}
	}

	t.log.Debugf("Fetched Trello board %q: %d lists, %d labels, %d members, %d cards, %d checklists",
		board.Board.Name, len(board.Lists), len(board.Labels), len(board.Members), len(board.Cards), len(board.Checklists))

	return board, nil
}

func (t realTrelloClient) CreateList(ctx context.Context, list models.NewList) (models.List, error) {
	var out models.List
	err := t.do(ctx, http.MethodPost, "/lists", encode(list), &out)
	return out, err
}

func (t realTrelloClient) CreateLabel(ctx context.Context, label models.NewLabel) (models.Label, error) {
	var out models.Label
	err := t.do(ctx, http.MethodPost, "/labels", encode(label), &out)
	return out, err
}

func (t realTrelloClient) UpdateLabel(ctx context.Context, labelID string, name string) (models.Label, error) {
	var out models.Label
	err := t.do(ctx, http.MethodPut, fmt.Sprintf("/labels/%s", url.PathEscape(labelID)), url.Values{"name": {name}}, &out)
	return out, err
}

func (t realTrelloClient) CreateCard(ctx context.Context, card models.CardFields) (models.Card, error) {
	params, err := card.Values()
	if err != nil {
		return models.Card{}, err
	}
	var out models.Card
	err = t.do(ctx, http.MethodPost, "/cards", params, &out)
	return out, err
}

func (t realTrelloClient) UpdateCard(ctx context.Context, cardID string, update models.CardUpdate) (models.Card, error) {
	params, err := update.Values()
	if err != nil {
		return models.Card{}, err
	}
	var out models.Card
	err = t.do(ctx, http.MethodPut, fmt.Sprintf("/cards/%s", url.PathEscape(cardID)), params, &out)
	return out, err
}

func (t realTrelloClient) CreateChecklist(ctx context.Context, checklist models.NewChecklist) (models.Checklist, error) {
	var out models.Checklist
	err := t.do(ctx, http.MethodPost, "/checklists", encode(checklist), &out)
	return out, err
}

func (t realTrelloClient) DeleteChecklist(ctx context.Context, checklistID string) error {
	return t.do(ctx, http.MethodDelete, fmt.Sprintf("/checklists/%s", url.PathEscape(checklistID)), nil, nil)
}

func (t realTrelloClient) CreateCheckItem(ctx context.Context, checklistID string, item models.NewCheckItem) (models.CheckItem, error) {
	var out models.CheckItem
	err := t.do(ctx, http.MethodPost, fmt.Sprintf("/checklists/%s/checkItems", url.PathEscape(checklistID)), encode(item), &out)
	return out, err
}

func (t realTrelloClient) UpdateCheckItem(ctx context.Context, cardID string, checkItemID string, complete bool) (models.CheckItem, error) {
	state := models.StateIncomplete
	if complete {
		state = models.StateComplete
	}
	var out models.CheckItem
	err := t.do(ctx, http.MethodPut,
		fmt.Sprintf("/cards/%s/checkItem/%s", url.PathEscape(cardID), url.PathEscape(checkItemID)),
		url.Values{"state": {state}}, &out)
	return out, err
}

func (t realTrelloClient) DeleteCheckItem(ctx context.Context, checklistID string, checkItemID string) error {
	return t.do(ctx, http.MethodDelete,
		fmt.Sprintf("/checklists/%s/checkItems/%s", url.PathEscape(checklistID), url.PathEscape(checkItemID)), nil, nil)
}

// DRY RUN CLIENT

func (t dryrunTrelloClient) newID() string {
	*t.nextID++
	return fmt.Sprintf("dry-run-%d", *t.nextID)
}

func (t dryrunTrelloClient) CreateList(ctx context.Context, list models.NewList) (models.List, error) {
	t.log.Infof("Create Trello list %q", list.Name)
	return models.List{ID: t.newID(), Name: list.Name, BoardID: list.BoardID}, nil
}

func (t dryrunTrelloClient) CreateLabel(ctx context.Context, label models.NewLabel) (models.Label, error) {
	t.log.Infof("Create Trello label %q (%s)", label.Name, label.Color)
	return models.Label{ID: t.newID(), Name: label.Name, Color: label.Color, BoardID: label.BoardID}, nil
}

func (t dryrunTrelloClient) UpdateLabel(ctx context.Context, labelID string, name string) (models.Label, error) {
	t.log.Infof("Rename Trello label %s to %q", labelID, name)
	return models.Label{ID: labelID, Name: name}, nil
}

func (t dryrunTrelloClient) CreateCard(ctx context.Context, card models.CardFields) (models.Card, error) {
	t.log.Info("")
	t.log.Info("Create new Trello card:")
	t.log.Infof("  Name: %s", card.Name)
	t.log.Infof("  Description: %s", utils.Truncate(card.Desc, 50))
	t.log.Infof("  Due: %s", card.Due)
	t.log.Infof("  List: %s", card.ListID)
	t.log.Infof("  Labels: %s", strings.Join(card.LabelIDs, ", "))
	t.log.Infof("  Members: %s", strings.Join(card.MemberIDs, ", "))
	t.log.Info("")

	out := models.Card{ID: t.newID()}
	models.CardUpdate{
		Changed: []models.CardField{models.CardName, models.CardDesc, models.CardDue, models.CardList, models.CardLabels, models.CardMembers},
		Fields:  card,
	}.ApplyTo(&out)
	return out, nil
}

func (t dryrunTrelloClient) UpdateCard(ctx context.Context, cardID string, update models.CardUpdate) (models.Card, error) {
	t.log.Info("")
	t.log.Infof("Update Trello card %s:", cardID)
	for _, f := range update.Changed {
		switch f {
		case models.CardDesc:
			t.log.Infof("  desc: %s", utils.Truncate(update.Fields.Desc, 50))
		case models.CardLabels:
			t.log.Infof("  idLabels: %s", strings.Join(update.Fields.LabelIDs, ", "))
		case models.CardMembers:
			t.log.Infof("  idMembers: %s", strings.Join(update.Fields.MemberIDs, ", "))
		case models.CardName:
			t.log.Infof("  name: %s", update.Fields.Name)
		case models.CardDue:
			t.log.Infof("  due: %s", update.Fields.Due)
		case models.CardList:
			t.log.Infof("  idList: %s", update.Fields.ListID)
		}
	}
	t.log.Info("")

	out := models.Card{ID: cardID}
	update.ApplyTo(&out)
	return out, nil
}

func (t dryrunTrelloClient) CreateChecklist(ctx context.Context, checklist models.NewChecklist) (models.Checklist, error) {
	t.log.Infof("Create checklist %q on card %s", checklist.Name, checklist.CardID)
	return models.Checklist{ID: t.newID(), Name: checklist.Name, CardID: checklist.CardID}, nil
}

func (t dryrunTrelloClient) DeleteChecklist(ctx context.Context, checklistID string) error {
	t.log.Infof("Delete checklist %s", checklistID)
	return nil
}

func (t dryrunTrelloClient) CreateCheckItem(ctx context.Context, checklistID string, item models.NewCheckItem) (models.CheckItem, error) {
	t.log.Infof("Create check item %q (checked: %t) on checklist %s", item.Name, item.Checked, checklistID)
	state := models.StateIncomplete
	if item.Checked {
		state = models.StateComplete
	}
	return models.CheckItem{ID: t.newID(), Name: item.Name, State: state, ChecklistID: checklistID}, nil
}

func (t dryrunTrelloClient) UpdateCheckItem(ctx context.Context, cardID string, checkItemID string, complete bool) (models.CheckItem, error) {
	t.log.Infof("Set check item %s on card %s complete: %t", checkItemID, cardID, complete)
	state := models.StateIncomplete
	if complete {
		state = models.StateComplete
	}
	return models.CheckItem{ID: checkItemID, State: state}, nil
}

func (t dryrunTrelloClient) DeleteCheckItem(ctx context.Context, checklistID string, checkItemID string) error {
	t.log.Infof("Delete check item %s from checklist %s", checkItemID, checklistID)
	return nil
}

// NewClient creates a Client for the configured board. A dry-run client
// is returned when the configuration asks for one.
func NewClient(config cfg.Config) Client {
	log := config.GetLogger()

	rc := realTrelloClient{
		baseURL: strings.TrimRight(config.GetConfigString(cfg.TrelloURL), "/"),
		key:     config.GetConfigString(cfg.TrelloKey),
		token:   config.GetConfigString(cfg.TrelloToken),
		timeout: config.GetTimeout(),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}

	if config.IsDryRun() {
		log.Info("Dry run: Trello writes will only be logged")
		return dryrunTrelloClient{realTrelloClient: rc, nextID: new(int)}
	}

	log.Debug("Trello client initialized")

	return rc
}
