package app

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/specialistvlad/stageplan/internal/handlers"
	"github.com/specialistvlad/stageplan/modules/gitsource"
	"github.com/specialistvlad/stageplan/modules/print"
	"github.com/specialistvlad/stageplan/modules/s3deploy"
	"github.com/specialistvlad/stageplan/modules/shell"
)

// coreModules is the definitive list of all action modules compiled into the
// stageplan binary.
func coreModules(awsCfg aws.Config, awsEndpoint string) []handlers.Module {
	return []handlers.Module{
		&print.Module{},
		&shell.Module{},
		&gitsource.Module{},
		&s3deploy.Module{Client: s3deploy.NewClient(awsCfg, awsEndpoint)},
	}
}
