package handlers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/kudu"
	"github.com/Azure/logicapp-mcp/internal/registry"
	"github.com/Azure/logicapp-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultCommandDirectory is where execute_command runs unless told otherwise.
const defaultCommandDirectory = `site\wwwroot`

type kuduFunc func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error)

func onKudu(a *Adapters, fn kuduFunc) registry.ToolHandler {
	return func(ctx context.Context, c azure.Context, args tools.Args) (interface{}, error) {
		k, err := a.Kudu(ctx, c)
		if err != nil {
			return nil, err
		}
		return fn(ctx, k, args.String("app_name", ""), args)
	}
}

// kuduTool declares a tool whose first argument is the target app.
func kuduTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	base := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("app_name", mcp.Required(), mcp.Description("Name of the Logic App (App Service) site")),
	}
	return mcp.NewTool(name, append(base, opts...)...)
}

func decodeBase64(field, value string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 in %s: %w", field, err)
	}
	return data, nil
}

// RegisterKuduTools registers the Kudu family.
func RegisterKuduTools(reg *registry.ToolRegistry, a *Adapters) {
	registerSCMTools(reg, a)
	registerFileTools(reg, a)
	registerDeploymentTools(reg, a)
	registerRuntimeTools(reg, a)

	pointers := []struct{ uri, name, tool string }{
		{"kudu://scm/info", "SCM", "get_scm_info"},
		{"kudu://vfs/", "VFS", "list_directory"},
		{"kudu://deployments/", "Deployments", "list_deployments"},
		{"kudu://processes/", "Processes", "list_processes"},
		{"kudu://webjobs/", "WebJobs", "list_webjobs"},
	}
	for _, p := range pointers {
		text := fmt.Sprintf("%s resource - use %s tool", p.name, p.tool)
		reg.RegisterResource(mcp.NewResource(p.uri, p.name,
			mcp.WithResourceDescription(fmt.Sprintf("Kudu %s of an app", p.name)),
			mcp.WithMIMEType("text/plain"),
		), func(context.Context, azure.Context) (string, error) {
			return text, nil
		})
	}
}

func registerSCMTools(reg *registry.ToolRegistry, a *Adapters) {
	reg.RegisterTool(kuduTool("get_scm_info", "Get source control information of the app"),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, _ tools.Args) (interface{}, error) {
			return k.GetSCMInfo(ctx, app)
		}), registry.CategorySCM)

	reg.RegisterTool(kuduTool("clean_repository", "Clean the app's git repository"),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, _ tools.Args) (interface{}, error) {
			return k.CleanRepository(ctx, app)
		}), registry.CategorySCM)

	reg.RegisterTool(kuduTool("delete_repository", "Delete the app's git repository"),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, _ tools.Args) (interface{}, error) {
			return k.DeleteRepository(ctx, app)
		}), registry.CategorySCM)

	reg.RegisterTool(kuduTool("execute_command", "Execute a shell command on the app worker",
		mcp.WithString("command", mcp.Required(), mcp.Description("Command to execute")),
		mcp.WithString("directory", mcp.Description("Working directory"), mcp.DefaultString(defaultCommandDirectory)),
	), onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
		return k.ExecuteCommand(ctx, app, args.String("command", ""), args.String("directory", defaultCommandDirectory))
	}), registry.CategorySCM)
}

func registerFileTools(reg *registry.ToolRegistry, a *Adapters) {
	filePath := mcp.WithString("file_path", mcp.Required(), mcp.Description("Path relative to the site root"))
	dirPath := mcp.WithString("dir_path", mcp.Required(), mcp.Description("Directory path relative to the site root"))

	reg.RegisterTool(kuduTool("get_file", "Read a file through the VFS API", filePath),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			data, err := k.GetFile(ctx, app, args.String("file_path", ""))
			if err != nil {
				return nil, err
			}
			return tools.Binary{Data: data}, nil
		}), registry.CategoryFiles)

	reg.RegisterTool(kuduTool("list_directory", "List a directory through the VFS API", dirPath),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			return k.ListDirectory(ctx, app, args.String("dir_path", ""))
		}), registry.CategoryFiles)

	reg.RegisterTool(kuduTool("put_file", "Write a file through the VFS API",
		filePath,
		mcp.WithString("content", mcp.Required(), mcp.Description("File content")),
		mcp.WithString("encoding", mcp.Description("Encoding of content"), mcp.DefaultString("text"), mcp.Enum("text", "base64")),
	), onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
		content := []byte(args.String("content", ""))
		if args.String("encoding", "text") == "base64" {
			var err error
			if content, err = decodeBase64("content", string(content)); err != nil {
				return nil, err
			}
		}
		return k.PutFile(ctx, app, args.String("file_path", ""), content)
	}), registry.CategoryFiles)

	reg.RegisterTool(kuduTool("create_directory", "Create a directory through the VFS API", dirPath),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			return k.CreateDirectory(ctx, app, args.String("dir_path", ""))
		}), registry.CategoryFiles)

	reg.RegisterTool(kuduTool("delete_file", "Delete a file through the VFS API", filePath),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			return k.DeleteFile(ctx, app, args.String("file_path", ""))
		}), registry.CategoryFiles)

	reg.RegisterTool(kuduTool("download_directory_zip", "Download a directory as a zip archive", dirPath),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			data, err := k.DownloadDirectoryZip(ctx, app, args.String("dir_path", ""))
			if err != nil {
				return nil, err
			}
			return tools.Binary{Label: "Zip file", Data: data}, nil
		}), registry.CategoryFiles)

	reg.RegisterTool(kuduTool("upload_zip_directory", "Extract a zip archive into a directory",
		dirPath,
		mcp.WithString("zip_content", mcp.Required(), mcp.Description("Base64 encoded zip archive")),
	), onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
		data, err := decodeBase64("zip_content", args.String("zip_content", ""))
		if err != nil {
			return nil, err
		}
		return k.UploadZipDirectory(ctx, app, args.String("dir_path", ""), data)
	}), registry.CategoryFiles)
}

func registerDeploymentTools(reg *registry.ToolRegistry, a *Adapters) {
	deploymentID := mcp.WithString("deployment_id", mcp.Required(), mcp.Description("Deployment ID"))

	reg.RegisterTool(kuduTool("list_deployments", "List the app's deployments"),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, _ tools.Args) (interface{}, error) {
			return k.ListDeployments(ctx, app)
		}), registry.CategoryDeployments)

	reg.RegisterTool(kuduTool("get_deployment", "Get one deployment", deploymentID),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			return k.GetDeployment(ctx, app, args.String("deployment_id", ""))
		}), registry.CategoryDeployments)

	reg.RegisterTool(kuduTool("redeploy", "Redeploy a previous deployment, or the latest one",
		mcp.WithString("deployment_id", mcp.Description("Deployment ID, defaults to the latest")),
		mcp.WithBoolean("clean", mcp.Description("Clean the target before deploying"), mcp.DefaultBool(false)),
		mcp.WithBoolean("need_file_update", mcp.Description("Update the files from the repository"), mcp.DefaultBool(true)),
	), onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
		return k.Redeploy(ctx, app, args.String("deployment_id", ""), args.Bool("clean", false), args.Bool("need_file_update", true))
	}), registry.CategoryDeployments)

	reg.RegisterTool(kuduTool("delete_deployment", "Delete a deployment", deploymentID),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			return k.DeleteDeployment(ctx, app, args.String("deployment_id", ""))
		}), registry.CategoryDeployments)

	reg.RegisterTool(kuduTool("get_deployment_log", "Get the log entries of a deployment", deploymentID),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			return k.GetDeploymentLog(ctx, app, args.String("deployment_id", ""))
		}), registry.CategoryDeployments)

	reg.RegisterTool(kuduTool("get_deployment_log_details", "Get the details of one deployment log entry",
		deploymentID,
		mcp.WithString("log_id", mcp.Required(), mcp.Description("Log entry ID")),
	), onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
		return k.GetDeploymentLogDetails(ctx, app, args.String("deployment_id", ""), args.String("log_id", ""))
	}), registry.CategoryDeployments)

	reg.RegisterTool(kuduTool("zip_deploy_from_url", "Deploy a zip package from a URL",
		mcp.WithString("package_uri", mcp.Required(), mcp.Description("URL of the zip package")),
		mcp.WithBoolean("is_async", mcp.Description("Return before the deployment finishes"), mcp.DefaultBool(true)),
	), onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
		return k.ZipDeployFromURL(ctx, app, args.String("package_uri", ""), args.Bool("is_async", true))
	}), registry.CategoryDeployments)

	reg.RegisterTool(kuduTool("zip_deploy_from_file", "Deploy a base64 encoded zip package",
		mcp.WithString("zip_content", mcp.Required(), mcp.Description("Base64 encoded zip package")),
	), onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
		data, err := decodeBase64("zip_content", args.String("zip_content", ""))
		if err != nil {
			return nil, err
		}
		return k.ZipDeployFromFile(ctx, app, data)
	}), registry.CategoryDeployments)
}

func registerRuntimeTools(reg *registry.ToolRegistry, a *Adapters) {
	processID := mcp.WithString("process_id", mcp.Required(), mcp.Description("Process ID"))
	jobName := mcp.WithString("job_name", mcp.Required(), mcp.Description("Name of the WebJob"))

	reg.RegisterTool(kuduTool("get_ssh_key", "Get the app's public SSH key",
		mcp.WithBoolean("ensure_public_key", mcp.Description("Generate a key pair if none exists"), mcp.DefaultBool(true)),
	), onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
		return k.GetSSHKey(ctx, app, args.Bool("ensure_public_key", true))
	}), registry.CategoryRuntime)

	reg.RegisterTool(kuduTool("set_private_key", "Set the app's private SSH key",
		mcp.WithString("private_key", mcp.Required(), mcp.Description("PEM encoded private key")),
	), onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
		return k.SetPrivateKey(ctx, app, args.String("private_key", ""))
	}), registry.CategoryRuntime)

	reg.RegisterTool(kuduTool("delete_ssh_key", "Delete the app's SSH key"),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, _ tools.Args) (interface{}, error) {
			return k.DeleteSSHKey(ctx, app)
		}), registry.CategoryRuntime)

	reg.RegisterTool(kuduTool("get_environment", "Get the Kudu environment of the app"),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, _ tools.Args) (interface{}, error) {
			return k.GetEnvironment(ctx, app)
		}), registry.CategoryRuntime)

	reg.RegisterTool(kuduTool("get_settings", "Get the Kudu settings of the app"),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, _ tools.Args) (interface{}, error) {
			return k.GetSettings(ctx, app)
		}), registry.CategoryRuntime)

	reg.RegisterTool(kuduTool("list_processes", "List the processes running on the worker"),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, _ tools.Args) (interface{}, error) {
			return k.ListProcesses(ctx, app)
		}), registry.CategoryRuntime)

	reg.RegisterTool(kuduTool("get_process", "Get one process", processID),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			return k.GetProcess(ctx, app, args.String("process_id", ""))
		}), registry.CategoryRuntime)

	reg.RegisterTool(kuduTool("kill_process", "Kill a process", processID),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			return k.KillProcess(ctx, app, args.String("process_id", ""))
		}), registry.CategoryRuntime)

	reg.RegisterTool(kuduTool("create_process_dump", "Create a memory dump of a process",
		processID,
		mcp.WithString("dump_type", mcp.Description("Dump type"), mcp.DefaultString("mini"), mcp.Enum("mini", "full")),
	), onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
		data, err := k.CreateProcessDump(ctx, app, args.String("process_id", ""), args.String("dump_type", "mini"))
		if err != nil {
			return nil, err
		}
		return tools.Binary{Label: "Process dump", Data: data}, nil
	}), registry.CategoryRuntime)

	reg.RegisterTool(kuduTool("list_webjobs", "List the app's WebJobs"),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, _ tools.Args) (interface{}, error) {
			return k.ListWebJobs(ctx, app)
		}), registry.CategoryRuntime)

	reg.RegisterTool(kuduTool("get_webjob", "Get one WebJob", jobName),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			return k.GetWebJob(ctx, app, args.String("job_name", ""))
		}), registry.CategoryRuntime)

	reg.RegisterTool(kuduTool("start_webjob", "Start a WebJob", jobName),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			return k.StartWebJob(ctx, app, args.String("job_name", ""))
		}), registry.CategoryRuntime)

	reg.RegisterTool(kuduTool("stop_webjob", "Stop a WebJob", jobName),
		onKudu(a, func(ctx context.Context, k *kudu.Client, app string, args tools.Args) (interface{}, error) {
			return k.StopWebJob(ctx, app, args.String("job_name", ""))
		}), registry.CategoryRuntime)
}
