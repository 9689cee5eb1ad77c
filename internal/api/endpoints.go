package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Login exchanges credentials for a JWT.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &res); err != nil {
		return "", err
	}
	if res.Token == "" {
		return "", fmt.Errorf("login: %w", ErrEmptyResponse)
	}
	return res.Token, nil
}

// Users

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	return out, c.do(ctx, http.MethodGet, "/usuarios", nil, &out)
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) (User, error) {
	var out User
	return out, c.mutate(ctx, http.MethodPost, "/usuarios", in, &out)
}

func (c *Client) UpdateUser(ctx context.Context, id int, in UserInput) (User, error) {
	out := User{ID: id}
	return out, c.mutate(ctx, http.MethodPut, "/usuarios/"+strconv.Itoa(id), in, &out)
}

func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/usuarios/"+strconv.Itoa(id), nil, nil)
}

// Roles

func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	return out, c.do(ctx, http.MethodGet, "/roles", nil, &out)
}

func (c *Client) CreateRole(ctx context.Context, in Role) (Role, error) {
	out := in
	return out, c.mutate(ctx, http.MethodPost, "/roles", in, &out)
}

func (c *Client) UpdateRole(ctx context.Context, in Role) (Role, error) {
	out := in
	return out, c.mutate(ctx, http.MethodPut, "/roles/"+strconv.Itoa(in.ID), in, &out)
}

func (c *Client) DeleteRole(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/roles/"+strconv.Itoa(id), nil, nil)
}

// Reports

func (c *Client) ListReports(ctx context.Context) ([]Report, error) {
	var out []Report
	return out, c.do(ctx, http.MethodGet, "/reportes", nil, &out)
}

func (c *Client) CreateReport(ctx context.Context, in Report) (Report, error) {
	out := in
	return out, c.mutate(ctx, http.MethodPost, "/reportes", in, &out)
}

func (c *Client) DeleteReport(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/reportes/"+strconv.Itoa(id), nil, nil)
}

// Resources

// ListResources returns all resources, or only those of subjectID when it is non-zero.
func (c *Client) ListResources(ctx context.Context, subjectID int) ([]Resource, error) {
	path := "/recursos"
	if subjectID != 0 {
		path += "?" + url.Values{"materia": {strconv.Itoa(subjectID)}}.Encode()
	}
	var out []Resource
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

func (c *Client) GetResource(ctx context.Context, id int) (Resource, error) {
	var out Resource
	return out, c.do(ctx, http.MethodGet, "/recursos/"+strconv.Itoa(id), nil, &out)
}

func (c *Client) CreateResource(ctx context.Context, in Resource) (Resource, error) {
	out := in
	return out, c.mutate(ctx, http.MethodPost, "/recursos", in, &out)
}

func (c *Client) UpdateResource(ctx context.Context, in Resource) (Resource, error) {
	out := in
	return out, c.mutate(ctx, http.MethodPut, "/recursos/"+strconv.Itoa(in.ID), in, &out)
}

func (c *Client) DeleteResource(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/recursos/"+strconv.Itoa(id), nil, nil)
}

// Comments

func (c *Client) ListComments(ctx context.Context, resourceID int) ([]Comment, error) {
	var out []Comment
	return out, c.do(ctx, http.MethodGet, "/comentarios/recurso/"+strconv.Itoa(resourceID), nil, &out)
}

func (c *Client) CreateComment(ctx context.Context, in Comment) (Comment, error) {
	out := in
	return out, c.mutate(ctx, http.MethodPost, "/comentarios", in, &out)
}

func (c *Client) UpdateComment(ctx context.Context, in Comment) (Comment, error) {
	out := in
	return out, c.mutate(ctx, http.MethodPut, "/comentarios/"+strconv.Itoa(in.ID), in, &out)
}

func (c *Client) DeleteComment(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/comentarios/"+strconv.Itoa(id), nil, nil)
}

// Reactions

func (c *Client) ListReactions(ctx context.Context, resourceID int) ([]Reaction, error) {
	var out []Reaction
	return out, c.do(ctx, http.MethodGet, "/likes/recurso/"+strconv.Itoa(resourceID), nil, &out)
}

// React submits a reaction. The backend applies toggle semantics: the same
// type twice removes it, the other type switches it.
func (c *Client) React(ctx context.Context, in Reaction) error {
	return c.do(ctx, http.MethodPost, "/likes", in, nil)
}

// Curriculum

func (c *Client) ListCareers(ctx context.Context) ([]Career, error) {
	var out []Career
	return out, c.do(ctx, http.MethodGet, "/carreras", nil, &out)
}

// ListSubjects filters by career and semester when they are non-zero.
func (c *Client) ListSubjects(ctx context.Context, careerID, semester int) ([]Subject, error) {
	q := url.Values{}
	if careerID != 0 {
		q.Set("carrera", strconv.Itoa(careerID))
	}
	if semester != 0 {
		q.Set("semestre", strconv.Itoa(semester))
	}
	path := "/materias"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []Subject
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

// Logs

func (c *Client) ListLogs(ctx context.Context) ([]LogEntry, error) {
	var out []LogEntry
	return out, c.do(ctx, http.MethodGet, "/logs", nil, &out)
}

// mutate is do for create/update calls, where some endpoints answer with the
// stored record and others with an empty body or a bare status message.
func (c *Client) mutate(ctx context.Context, method, path string, in, out interface{}) error {
	err := c.do(ctx, method, path, in, out)
	if errors.Is(err, ErrEmptyResponse) {
		return nil
	}
	return err
}
