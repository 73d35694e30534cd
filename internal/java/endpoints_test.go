package java

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/jcg/internal/model"
)

const controllerSource = `package com.shop.api;

import org.springframework.web.bind.annotation.*;

@RestController
@RequestMapping("/api/orders")
public class OrderController {

    @GetMapping("/{id}")
    public Order get(@PathVariable long id) {
        return null;
    }

    @PostMapping
    public Order create(@RequestBody Order order) {
        return order;
    }

    @RequestMapping(path = "/bulk", method = RequestMethod.DELETE)
    public void purge() {
    }

    public void helper() {
    }
}
`

func TestEndpoints(t *testing.T) {
	classes := parseOne(t, controllerSource)
	endpoints := Endpoints(classes)
	require.Len(t, endpoints, 3)

	assert.Equal(t, &model.Endpoint{
		HTTPMethod: "GET",
		Path:       "/api/orders/{id}",
		Class:      "com.shop.api.OrderController",
		Method:     "get",
	}, endpoints[0])

	assert.Equal(t, "POST", endpoints[1].HTTPMethod)
	assert.Equal(t, "/api/orders", endpoints[1].Path, "bare mapping keeps the class prefix")

	assert.Equal(t, "DELETE", endpoints[2].HTTPMethod)
	assert.Equal(t, "/api/orders/bulk", endpoints[2].Path)
	assert.Equal(t, "purge", endpoints[2].Method)
}

func TestEndpointsWithoutClassPrefix(t *testing.T) {
	classes := parseOne(t, `package com.shop.api;

public class PingController {
    @GetMapping("/ping")
    public String ping() {
        return "pong";
    }
}
`)
	endpoints := Endpoints(classes)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "/ping", endpoints[0].Path)
}

func TestRequestMappingVerb(t *testing.T) {
	assert.Equal(t, "DELETE", requestMappingVerb(`RequestMapping(path = "/x", method = RequestMethod.DELETE)`))
	assert.Equal(t, "GET", requestMappingVerb(`RequestMapping("/x")`), "missing method attribute defaults to GET")
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/api/orders/{id}", joinPath("/api/orders", "/{id}"))
	assert.Equal(t, "/api/orders", joinPath("/api/orders", ""))
	assert.Equal(t, "/ping", joinPath("", "/ping"))
	assert.Equal(t, "/api/v1/users", joinPath("/api/v1/", "users"))
}
