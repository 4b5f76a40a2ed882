// Copyright 2024-2025 LIFS Tools
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shaj13/libcache"
	_ "github.com/shaj13/libcache/lru"
	log "github.com/sirupsen/logrus"
	"gopkg.in/resty.v1"

	"github.com/lifs-tools/mztab-validator-service/cvmapping"
)

// OlsClient resolves ontology terms against an OLS (Ontology Lookup
// Service) instance. Lookups are cached with a TTL inside the client; the
// validation core itself never caches across sessions.
type OlsClient interface {
	cvmapping.TermResolver
}

const (
	termCacheCapacity = 4096
	termCacheTTL      = 1 * time.Hour
)

func NewOlsClient(olsUrl string) OlsClient {
	cl := http.Client{Timeout: time.Second * 30}
	client := resty.NewWithClient(&cl)

	cache := libcache.LRU.New(termCacheCapacity)
	cache.SetTTL(termCacheTTL)

	return &olsClientImpl{olsUrl: olsUrl, client: client, cache: cache}
}

type olsClientImpl struct {
	olsUrl string
	client *resty.Client
	cache  libcache.Cache
}

type olsTerm struct {
	Iri          string `json:"iri"`
	Label        string `json:"label"`
	OboId        string `json:"obo_id"`
	OntologyName string `json:"ontology_name"`
	IsObsolete   bool   `json:"is_obsolete"`
}

type olsTermList struct {
	Embedded struct {
		Terms []olsTerm `json:"terms"`
	} `json:"_embedded"`
}

type olsOntology struct {
	OntologyId string `json:"ontologyId"`
	Config     struct {
		Title      string `json:"title"`
		VersionIri string `json:"versionIri"`
	} `json:"config"`
}

func (o *olsClientImpl) ResolveTerm(ctx context.Context, accession string) (*cvmapping.TermMetadata, error) {
	term, err := o.fetchTerm(ctx, accession)
	if err != nil {
		return nil, err
	}
	if term == nil {
		return nil, nil
	}
	return &cvmapping.TermMetadata{
		Accession: term.OboId,
		Label:     term.Label,
		Ontology:  term.OntologyName,
		Obsolete:  term.IsObsolete,
	}, nil
}

func (o *olsClientImpl) LookupOntology(ctx context.Context, namespace string) (*cvmapping.OntologyMetadata, error) {
	cacheKey := "ontology:" + namespace
	if cached, ok := o.cache.Load(cacheKey); ok {
		return cached.(*cvmapping.OntologyMetadata), nil
	}

	resp, err := o.makeRequest(ctx).Get(fmt.Sprintf("%s/api/ontologies/%s", o.olsUrl, url.PathEscape(namespace)))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("ontology lookup for '%s' failed with status %d", namespace, resp.StatusCode())
	}
	var ontology olsOntology
	if err := json.Unmarshal(resp.Body(), &ontology); err != nil {
		return nil, err
	}
	result := &cvmapping.OntologyMetadata{
		Namespace: ontology.OntologyId,
		Title:     ontology.Config.Title,
		Version:   ontology.Config.VersionIri,
	}
	o.cache.Store(cacheKey, result)
	return result, nil
}

func (o *olsClientImpl) IsChildOf(ctx context.Context, child, parent string, maxDepth int) (bool, error) {
	if maxDepth <= 0 {
		maxDepth = 16
	}
	frontier := []string{child}
	visited := map[string]bool{child: true}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, accession := range frontier {
			parents, err := o.fetchParents(ctx, accession)
			if err != nil {
				return false, err
			}
			for _, p := range parents {
				if p.OboId == parent {
					return true, nil
				}
				if !visited[p.OboId] {
					visited[p.OboId] = true
					next = append(next, p.OboId)
				}
			}
		}
		frontier = next
	}
	return false, nil
}

func (o *olsClientImpl) fetchTerm(ctx context.Context, accession string) (*olsTerm, error) {
	cacheKey := "term:" + accession
	if cached, ok := o.cache.Load(cacheKey); ok {
		return cached.(*olsTerm), nil
	}

	resp, err := o.makeRequest(ctx).
		SetQueryParam("obo_id", accession).
		Get(fmt.Sprintf("%s/api/terms", o.olsUrl))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("term lookup for '%s' failed with status %d", accession, resp.StatusCode())
	}
	var terms olsTermList
	if err := json.Unmarshal(resp.Body(), &terms); err != nil {
		return nil, err
	}
	if len(terms.Embedded.Terms) == 0 {
		return nil, nil
	}
	term := terms.Embedded.Terms[0]
	o.cache.Store(cacheKey, &term)
	return &term, nil
}

func (o *olsClientImpl) fetchParents(ctx context.Context, accession string) ([]olsTerm, error) {
	cacheKey := "parents:" + accession
	if cached, ok := o.cache.Load(cacheKey); ok {
		return cached.([]olsTerm), nil
	}

	term, err := o.fetchTerm(ctx, accession)
	if err != nil {
		return nil, err
	}
	if term == nil {
		log.Debugf("Term %s not found in OLS, treating as leaf without parents", accession)
		return nil, nil
	}

	// OLS requires the term IRI double URL-encoded in the path
	encodedIri := url.QueryEscape(url.QueryEscape(term.Iri))
	resp, err := o.makeRequest(ctx).
		Get(fmt.Sprintf("%s/api/ontologies/%s/terms/%s/parents", o.olsUrl, url.PathEscape(term.OntologyName), encodedIri))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("parent lookup for '%s' failed with status %d", accession, resp.StatusCode())
	}
	var terms olsTermList
	if err := json.Unmarshal(resp.Body(), &terms); err != nil {
		return nil, err
	}
	o.cache.Store(cacheKey, terms.Embedded.Terms)
	return terms.Embedded.Terms, nil
}

func (o *olsClientImpl) makeRequest(ctx context.Context) *resty.Request {
	req := o.client.R().SetContext(ctx)
	req.SetHeader("Accept", "application/json")
	return req
}
