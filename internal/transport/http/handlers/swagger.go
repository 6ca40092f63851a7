package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// swaggerRoutePrefix is where the generated OpenAPI UI is mounted.
const swaggerRoutePrefix = "/swagger"

// RegisterSwagger mounts the Swagger UI. The OpenAPI document is generated
// into gen/docs/swagger and registered through that package's init.
func RegisterSwagger(r gin.IRouter) {
	r.GET(swaggerRoutePrefix+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
