package router

import "github.com/gin-gonic/gin"

// Module is one feature area that mounts its routes on a group handed to it
// by the Registry.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// ModuleFunc adapts a plain function to Module for one-route modules.
type ModuleFunc func(rg *gin.RouterGroup)

func (f ModuleFunc) Register(rg *gin.RouterGroup) { f(rg) }
