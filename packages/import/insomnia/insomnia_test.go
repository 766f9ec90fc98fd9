package insomnia

import (
	"reflect"
	"testing"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

const workspaceExport = `{
	"_type": "export",
	"__export_format": 4,
	"resources": [
		{"_id": "wrk_1", "_type": "workspace", "name": "Shop"},
		{"_id": "fld_1", "_type": "request_group", "parentId": "wrk_1", "name": "Users"},
		{"_id": "fld_2", "_type": "request_group", "parentId": "fld_1", "name": "Admin Tools"},
		{
			"_id": "req_1",
			"_type": "request",
			"parentId": "fld_1",
			"name": "Get User",
			"method": "GET",
			"url": "{{ _.baseUrl }}/users/{{ userId }}",
			"parameters": [
				{"name": "expand", "value": "roles"},
				{"name": "debug", "value": "1", "disabled": true}
			],
			"authentication": {"type": "bearer", "token": "{{ _.token }}"}
		},
		{
			"_id": "req_2",
			"_type": "request",
			"parentId": "fld_2",
			"name": "Create User",
			"method": "post",
			"url": "https://api.example.com/users",
			"headers": [
				{"name": "Content-Type", "value": "application/xml"},
				{"name": "X-Trace", "value": "on"},
				{"name": "X-Off", "value": "x", "disabled": true}
			],
			"body": {"mimeType": "application/xml", "text": "<user/>"},
			"authentication": {"type": "basic", "username": "admin", "password": "{{ _.pass }}"}
		},
		{"_id": "env_base", "_type": "environment", "parentId": "wrk_1", "name": "Base Environment",
			"data": {"baseUrl": "http://localhost:3000", "token": "dev-token"}},
		{"_id": "env_prod", "_type": "environment", "parentId": "env_base", "name": "Production",
			"data": {"baseUrl": "https://api.example.com", "retries": 3, "db": {"host": "db.internal"}}}
	]
}`

func TestParse_Requests(t *testing.T) {
	col, err := Parse([]byte(workspaceExport))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(col.Requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(col.Requests))
	}

	get := col.Requests[0]
	if get.Folder != "Users" {
		t.Errorf("folder = %q", get.Folder)
	}
	if get.FileName() != "users/get_user" {
		t.Errorf("file name = %q", get.FileName())
	}
	if get.Draft.URL != "{{baseUrl}}/users/{{userId}}" {
		t.Errorf("variables not converted: %q", get.Draft.URL)
	}
	if want := []kv.Pair{{Key: "expand", Value: "roles"}}; !reflect.DeepEqual(get.Draft.Params.Pairs(), want) {
		t.Errorf("params = %v", get.Draft.Params.Pairs())
	}
	if get.Draft.Auth != auth.BearerToken("{{token}}") {
		t.Errorf("auth = %+v", get.Draft.Auth)
	}

	create := col.Requests[1]
	if create.FileName() != "users/admin_tools/create_user" {
		t.Errorf("file name = %q", create.FileName())
	}
	if create.Draft.Method != http.MethodPost {
		t.Errorf("method = %s", create.Draft.Method)
	}
	if create.Draft.ContentType != http.ContentXML || create.Draft.Body != "<user/>" {
		t.Errorf("body = %q as %s", create.Draft.Body, create.Draft.ContentType)
	}
	if want := []kv.Pair{{Key: "X-Trace", Value: "on"}}; !reflect.DeepEqual(create.Draft.Headers.Pairs(), want) {
		t.Errorf("headers = %v", create.Draft.Headers.Pairs())
	}
	if create.Draft.Auth != auth.BasicAuth("admin", "{{pass}}") {
		t.Errorf("auth = %+v", create.Draft.Auth)
	}
}

func TestParse_Environments(t *testing.T) {
	col, err := Parse([]byte(workspaceExport))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(col.Environments) != 1 {
		t.Fatalf("expected 1 environment, got %d", len(col.Environments))
	}
	prod := col.Environments[0]
	if prod.Name != "Production" {
		t.Errorf("name = %q", prod.Name)
	}
	want := []kv.Pair{
		{Key: "baseUrl", Value: "https://api.example.com"},
		{Key: "db.host", Value: "db.internal"},
		{Key: "retries", Value: "3"},
		{Key: "token", Value: "dev-token"},
	}
	if !reflect.DeepEqual(prod.Variables, want) {
		t.Errorf("variables = %v", prod.Variables)
	}
}

func TestParse_BaseEnvironmentOnly(t *testing.T) {
	export := `{"_type": "export", "resources": [
		{"_id": "env_base", "_type": "environment", "parentId": "wrk_1", "name": "Base Environment",
			"data": {"host": "localhost"}}
	]}`
	col, err := Parse([]byte(export))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(col.Environments) != 1 || col.Environments[0].Name != "Base Environment" {
		t.Fatalf("environments = %+v", col.Environments)
	}
}

func TestParse_BearerPrefix(t *testing.T) {
	export := `{"_type": "export", "resources": [
		{"_id": "req_1", "_type": "request", "name": "x", "url": "https://a.test",
			"authentication": {"type": "bearer", "token": "t", "prefix": "Token"}}
	]}`
	col, err := Parse([]byte(export))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := col.Requests[0].Draft
	if d.Auth.Kind() != auth.None {
		t.Errorf("auth kind = %v", d.Auth.Kind())
	}
	if want := []kv.Pair{{Key: "Authorization", Value: "Token t"}}; !reflect.DeepEqual(d.Headers.Pairs(), want) {
		t.Errorf("headers = %v", d.Headers.Pairs())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", `{`},
		{"not an export", `{"_type": "workspace"}`},
		{"bad method", `{"_type": "export", "resources": [{"_id": "r", "_type": "request", "name": "x", "method": "BREW"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
