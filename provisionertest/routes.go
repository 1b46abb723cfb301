package provisionertest

import (
	"io"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

const contentTypeTarGz = "application/x-tar-gz"

func (s *Server) routes() {
	r := s.engine

	r.GET("/auth", s.auth)

	r.GET("/config", s.listConfigs)
	r.GET("/config/servers", s.listServers)
	r.GET("/config/servers/:group", s.listServers)
	r.POST("/config/:name", s.createConfig)
	r.GET("/config/:name", s.getConfig)
	r.DELETE("/config/:name", s.destroyConfig)
	r.PUT("/config/:name/:key", s.setConfigKey)
	r.DELETE("/config/:name/:key", s.clearConfigKey)

	r.GET("/systems", s.listSystems)
	r.POST("/systems/:name", s.createSystem)
	r.GET("/systems/:name", s.getSystem)
	r.PUT("/systems/:name", s.addVersion)
	r.DELETE("/systems/:name", s.destroySystem)
	r.PUT("/systems/:name/owners", s.addOwners)
	r.DELETE("/systems/:name/owners", s.removeOwners)
	r.PUT("/systems/:name/:version", s.upload)
	r.GET("/systems/:name/:version", s.download)
	r.DELETE("/systems/:name/:version", s.removeVersion)

	r.GET("/users", s.listUsers)
	r.POST("/users/:name", s.createUser)
	r.GET("/users/:name", s.getUser)
	r.PUT("/users/:name", s.updateUser)
	r.DELETE("/users/:name", s.destroyUser)
	r.GET("/users/:name/available", s.available)
	r.POST("/users/:name/forgot", s.forgot)
	r.GET("/users/:name/servers", s.userServers)
	r.PUT("/users/:name/keys/:key", s.putKey)
	r.GET("/users/:name/keys/:key", s.getKey)

	r.GET("/keys", s.allKeys)
	r.GET("/keys/:name", s.userKeys)
}

func (s *Server) auth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

// --- config ---

func (s *Server) listConfigs(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"config": sortedValues(s.configs)})
}

func (s *Server) createConfig(c *gin.Context) {
	var settings map[string]any
	if err := c.ShouldBindJSON(&settings); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	name := c.Param("name")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[name]; ok {
		abort(c, http.StatusConflict, "config "+name+" exists")
		return
	}
	if settings == nil {
		settings = map[string]any{}
	}
	env := map[string]any{"name": name, "settings": settings}
	s.configs[name] = env
	c.JSON(http.StatusCreated, gin.H{"config": env})
}

func (s *Server) getConfig(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env, ok := s.configs[c.Param("name")]
	if !ok {
		abort(c, http.StatusNotFound, "no such config")
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": env})
}

func (s *Server) destroyConfig(c *gin.Context) {
	name := c.Param("name")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[name]; !ok {
		abort(c, http.StatusNotFound, "no such config")
		return
	}
	delete(s.configs, name)
	c.JSON(http.StatusOK, gin.H{"destroyed": name})
}

func (s *Server) setConfigKey(c *gin.Context) {
	var value any
	if err := c.ShouldBindJSON(&value); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	env, ok := s.configs[c.Param("name")]
	if !ok {
		abort(c, http.StatusNotFound, "no such config")
		return
	}
	env["settings"].(map[string]any)[c.Param("key")] = value
	c.JSON(http.StatusOK, gin.H{"config": env})
}

func (s *Server) clearConfigKey(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env, ok := s.configs[c.Param("name")]
	if !ok {
		abort(c, http.StatusNotFound, "no such config")
		return
	}
	delete(env["settings"].(map[string]any), c.Param("key"))
	c.JSON(http.StatusOK, gin.H{"config": env})
}

func (s *Server) listServers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"servers": s.filterServers("group", c.Param("group"))})
}

func (s *Server) filterServers(key, value string) []map[string]any {
	out := []map[string]any{}
	for _, srv := range s.servers {
		if value == "" || srv[key] == value {
			out = append(out, srv)
		}
	}
	return out
}

// --- systems ---

func (s *Server) listSystems(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"systems": sortedValues(s.systems)})
}

func (s *Server) createSystem(c *gin.Context) {
	var sys map[string]any
	if err := c.ShouldBindJSON(&sys); err != nil || sys == nil {
		abort(c, http.StatusBadRequest, "system body required")
		return
	}
	name := c.Param("name")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.systems[name]; ok {
		abort(c, http.StatusConflict, "system "+name+" exists")
		return
	}
	sys["name"] = name
	if _, ok := sys["owners"]; !ok {
		sys["owners"] = []any{}
	}
	sys["versions"] = versionsOf(sys)
	s.systems[name] = sys
	c.JSON(http.StatusCreated, gin.H{"system": sys})
}

func (s *Server) getSystem(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sys, ok := s.lookupSystem(c.Param("name"))
	if !ok {
		abort(c, http.StatusNotFound, "no such system")
		return
	}
	c.JSON(http.StatusOK, gin.H{"system": sys})
}

// lookupSystem finds a system by name or _id.
func (s *Server) lookupSystem(id string) (map[string]any, bool) {
	if sys, ok := s.systems[id]; ok {
		return sys, true
	}
	for _, sys := range s.systems {
		if sys["_id"] == id {
			return sys, true
		}
	}
	return nil, false
}

func (s *Server) addVersion(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sys, ok := s.lookupSystem(c.Param("name"))
	if !ok {
		abort(c, http.StatusNotFound, "no such system")
		return
	}
	v, _ := body["version"].(string)
	if v == "" {
		abort(c, http.StatusBadRequest, "version required")
		return
	}
	versions := sys["versions"].([]string)
	for _, existing := range versions {
		if existing == v {
			abort(c, http.StatusConflict, "version "+v+" exists")
			return
		}
	}
	sys["versions"] = append(versions, v)
	c.JSON(http.StatusOK, gin.H{"system": sys})
}

func (s *Server) destroySystem(c *gin.Context) {
	name := c.Param("name")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.systems[name]; !ok {
		abort(c, http.StatusNotFound, "no such system")
		return
	}
	delete(s.systems, name)
	for key := range s.tarballs {
		if len(key) > len(name) && key[:len(name)+1] == name+"@" {
			delete(s.tarballs, key)
		}
	}
	c.JSON(http.StatusOK, gin.H{"destroyed": name})
}

func (s *Server) addOwners(c *gin.Context)    { s.changeOwners(c, true) }
func (s *Server) removeOwners(c *gin.Context) { s.changeOwners(c, false) }

func (s *Server) changeOwners(c *gin.Context, add bool) {
	var owners []string
	if err := c.ShouldBindJSON(&owners); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sys, ok := s.systems[c.Param("name")]
	if !ok {
		abort(c, http.StatusNotFound, "no such system")
		return
	}

	set := map[string]bool{}
	for _, o := range sys["owners"].([]any) {
		set[o.(string)] = true
	}
	for _, o := range owners {
		set[o] = add
	}
	next := []any{}
	for o, keep := range set {
		if keep {
			next = append(next, o)
		}
	}
	sort.Slice(next, func(i, j int) bool { return next[i].(string) < next[j].(string) })
	sys["owners"] = next
	c.JSON(http.StatusOK, gin.H{"system": sys})
}

func (s *Server) upload(c *gin.Context) {
	if c.ContentType() != contentTypeTarGz {
		abort(c, http.StatusBadRequest, "expected "+contentTypeTarGz)
		return
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	name, version := c.Param("name"), c.Param("version")

	s.mu.Lock()
	defer s.mu.Unlock()
	sys, ok := s.systems[name]
	if !ok {
		abort(c, http.StatusNotFound, "no such system")
		return
	}
	s.tarballs[name+"@"+version] = data
	versions := sys["versions"].([]string)
	if !containsString(versions, version) {
		sys["versions"] = append(versions, version)
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "version": version, "size": len(data)})
}

func (s *Server) download(c *gin.Context) {
	s.mu.Lock()
	data, ok := s.tarballs[c.Param("name")+"@"+c.Param("version")]
	s.mu.Unlock()
	if !ok {
		abort(c, http.StatusNotFound, "no such version")
		return
	}
	c.Data(http.StatusOK, contentTypeTarGz, data)
}

func (s *Server) removeVersion(c *gin.Context) {
	name, version := c.Param("name"), c.Param("version")
	s.mu.Lock()
	defer s.mu.Unlock()
	sys, ok := s.systems[name]
	if !ok {
		abort(c, http.StatusNotFound, "no such system")
		return
	}
	versions := sys["versions"].([]string)
	if !containsString(versions, version) {
		abort(c, http.StatusNotFound, "no such version")
		return
	}
	kept := make([]string, 0, len(versions))
	for _, v := range versions {
		if v != version {
			kept = append(kept, v)
		}
	}
	sys["versions"] = kept
	delete(s.tarballs, name+"@"+version)
	c.JSON(http.StatusOK, gin.H{"system": sys})
}

func versionsOf(sys map[string]any) []string {
	if v, ok := sys["version"].(string); ok && v != "" {
		return []string{v}
	}
	return []string{}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// --- users ---

func (s *Server) listUsers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"users": sortedValues(s.users)})
}

func (s *Server) createUser(c *gin.Context) {
	var user map[string]any
	if err := c.ShouldBindJSON(&user); err != nil || user == nil {
		abort(c, http.StatusBadRequest, "user body required")
		return
	}
	name := c.Param("name")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; ok {
		abort(c, http.StatusConflict, "user "+name+" exists")
		return
	}
	user["username"] = name
	delete(user, "password")
	s.users[name] = user
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// lookupUser finds a user by username or _id.
func (s *Server) lookupUser(id string) (map[string]any, bool) {
	if u, ok := s.users[id]; ok {
		return u, true
	}
	for _, u := range s.users {
		if u["_id"] == id {
			return u, true
		}
	}
	return nil, false
}

func (s *Server) getUser(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.lookupUser(c.Param("name"))
	if !ok {
		abort(c, http.StatusNotFound, "no such user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (s *Server) updateUser(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.lookupUser(c.Param("name"))
	if !ok {
		abort(c, http.StatusNotFound, "no such user")
		return
	}
	for k, v := range patch {
		if k != "username" && k != "password" {
			u[k] = v
		}
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (s *Server) destroyUser(c *gin.Context) {
	name := c.Param("name")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; !ok {
		abort(c, http.StatusNotFound, "no such user")
		return
	}
	delete(s.users, name)
	delete(s.keys, name)
	c.JSON(http.StatusOK, gin.H{"destroyed": name})
}

func (s *Server) available(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, taken := s.users[c.Param("name")]
	c.JSON(http.StatusOK, gin.H{"available": !taken})
}

func (s *Server) forgot(c *gin.Context) {
	var params map[string]any
	if err := c.ShouldBindJSON(&params); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[c.Param("name")]; !ok {
		abort(c, http.StatusNotFound, "no such user")
		return
	}
	_, reset := params["password"]
	c.JSON(http.StatusOK, gin.H{"reset": reset, "sent": !reset})
}

func (s *Server) userServers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[c.Param("name")]; !ok {
		abort(c, http.StatusNotFound, "no such user")
		return
	}
	servers := s.filterServers("owner", c.Param("name"))
	if len(servers) == 0 {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"servers": servers})
}

func (s *Server) putKey(c *gin.Context) {
	var body struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	name := c.Param("name")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; !ok {
		abort(c, http.StatusNotFound, "no such user")
		return
	}
	if s.keys[name] == nil {
		s.keys[name] = map[string]string{}
	}
	s.keys[name][c.Param("key")] = body.Key
	c.Status(http.StatusCreated)
}

func (s *Server) getKey(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[c.Param("name")][c.Param("key")]
	if !ok {
		abort(c, http.StatusNotFound, "no such key")
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key})
}

func (s *Server) allKeys(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"keys": s.keys})
}

func (s *Server) userKeys(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, ok := s.keys[c.Param("name")]
	if !ok {
		keys = map[string]string{}
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}
